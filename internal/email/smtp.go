package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inboxguard/inboxguard/internal/config"
)

type SMTPSender struct {
	config config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{config: cfg}
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Message) Result {
	if err := validateMessage(msg); err != nil {
		return Result{Success: false, Error: err}
	}
	if s.config.Username != "" && !s.config.UseTLS {
		return Result{Success: false, Error: fmt.Errorf("SMTP auth requires TLS")}
	}
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Error: err}
	}

	messageID := fmt.Sprintf("<%s@inboxguard>", uuid.NewString())
	data := buildMessage(msg, messageID, time.Now())
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var err error
	if s.config.UseTLS {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		err = s.sendWithTLS(addr, auth, msg.From, msg.To, data)
	} else {
		err = smtp.SendMail(addr, nil, msg.From, []string{msg.To}, data)
	}
	if err != nil {
		return Result{Success: false, Error: sanitizeSMTPError(err)}
	}

	return Result{Success: true, MessageID: messageID}
}

func buildMessage(msg Message, messageID string, date time.Time) []byte {
	var message strings.Builder
	message.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	message.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	message.WriteString(fmt.Sprintf("Message-ID: %s\r\n", messageID))
	message.WriteString(fmt.Sprintf("Date: %s\r\n", date.Format(time.RFC1123Z)))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(message.String())
}

func sanitizeSMTPError(err error) error {
	s := strings.ToLower(err.Error())
	// x509 messages mention "authority", so certificates are checked first
	if strings.Contains(s, "x509") || strings.Contains(s, "certificate") {
		return fmt.Errorf("TLS certificate error")
	}
	if strings.Contains(s, "535") || strings.Contains(s, "authentication") || strings.Contains(s, "auth failed") {
		return fmt.Errorf("SMTP authentication failed")
	}
	return fmt.Errorf("SMTP error: check your configuration")
}

func (s *SMTPSender) sendWithTLS(addr string, auth smtp.Auth, from, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: s.config.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("TLS connection failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("SMTP client creation failed: %w", err)
	}
	defer client.Close()

	if s.config.Username != "" {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("sender rejected: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("recipient rejected: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data command failed: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("message write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message finalization failed: %w", err)
	}
	return client.Quit()
}
