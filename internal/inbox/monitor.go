package inbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/body"
	"github.com/inboxguard/inboxguard/internal/config"
)

// Monitor handles the IMAP connection and unread mail retrieval
type Monitor struct {
	config config.InboxConfig
	client *client.Client
	log    *zap.Logger
}

// NewMonitor creates a new inbox monitor
func NewMonitor(cfg config.InboxConfig, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		config: cfg,
		log:    log.Named("imap"),
	}
}

// Connect establishes IMAP connection
func (m *Monitor) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	m.log.Info("connecting to IMAP server", zap.String("addr", addr))

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(m.config.Email, m.config.Password); err != nil {
		c.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	m.client = c
	m.log.Info("login successful", zap.String("user", m.config.Email))
	return nil
}

// Disconnect closes the IMAP connection
func (m *Monitor) Disconnect() error {
	if m.client != nil {
		err := m.client.Logout()
		m.client = nil
		return err
	}
	return nil
}

// FetchUnread returns up to limit unread messages, newest first. It
// returns ErrNoMessage when the folder has nothing unread. Messages are
// fetched with PEEK so they stay unread.
func (m *Monitor) FetchUnread(ctx context.Context, limit int) ([]Email, error) {
	if m.client == nil {
		return nil, fmt.Errorf("not connected to IMAP server")
	}
	if limit <= 0 {
		limit = 1
	}

	mbox, err := m.client.Select(m.config.Folder, false)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", m.config.Folder, err)
	}
	m.log.Debug("mailbox selected", zap.String("folder", m.config.Folder), zap.Uint32("messages", mbox.Messages))

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search unread emails: %w", err)
	}
	if len(uids) == 0 {
		return nil, ErrNoMessage
	}
	uids = newestUIDs(uids, limit)
	m.log.Info("fetching unread emails", zap.Int("count", len(uids)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	var emails []Email
	for msg := range messages {
		email, err := parseMessage(msg, section)
		if err != nil {
			m.log.Warn("failed to parse message", zap.Uint32("uid", msg.Uid), zap.Error(err))
			continue
		}
		if email != nil {
			emails = append(emails, *email)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if len(emails) == 0 {
		return nil, ErrNoMessage
	}

	sort.Slice(emails, func(i, j int) bool { return emails[i].UID > emails[j].UID })
	return emails, nil
}

// newestUIDs returns the limit highest UIDs, highest first.
func newestUIDs(uids []uint32, limit int) []uint32 {
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// parseMessage converts an IMAP message to an Email, decoding the body
// through the part tree. Envelope fields fill gaps in the parsed headers.
func parseMessage(msg *imap.Message, section *imap.BodySectionName) (*Email, error) {
	if msg == nil || msg.Envelope == nil {
		return nil, nil
	}

	email := &Email{}
	if r := msg.GetBody(section); r != nil {
		part, err := body.ReadMIME(r)
		if err != nil {
			return nil, err
		}
		*email = FromPayload(part)
	}

	email.UID = msg.Uid
	email.ReceivedAt = msg.Envelope.Date
	email.Source = SourceIMAP
	if email.MessageID == "" {
		email.MessageID = msg.Envelope.MessageId
	}
	if email.Subject == "" {
		email.Subject = msg.Envelope.Subject
	}
	if email.Sender == "" && len(msg.Envelope.From) > 0 {
		from := msg.Envelope.From[0]
		email.Sender = formatAddress(from)
		email.SenderEmail = from.Address()
	}

	return email, nil
}

func formatAddress(a *imap.Address) string {
	if name := strings.TrimSpace(a.PersonalName); name != "" {
		return fmt.Sprintf("%s <%s>", name, a.Address())
	}
	return a.Address()
}

// MarkSeen flags the given messages as read
func (m *Monitor) MarkSeen(uids ...uint32) error {
	if m.client == nil {
		return fmt.Errorf("not connected to IMAP server")
	}
	if len(uids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := m.client.UidStore(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark emails as seen: %w", err)
	}
	return nil
}

// WatchUnread blocks, calling handle with the newest unread messages each
// time the mailbox changes, until ctx is cancelled.
func (m *Monitor) WatchUnread(ctx context.Context, limit int, handle func([]Email)) error {
	if m.client == nil {
		return fmt.Errorf("not connected to IMAP server")
	}

	if _, err := m.client.Select(m.config.Folder, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}

	updates := make(chan client.Update, 16)
	done := make(chan struct{})
	defer close(done)
	m.client.Updates = updates
	defer func() { m.client.Updates = nil }()
	changed := mailboxChanges(updates, done)

	stop := make(chan struct{})
	idleDone := make(chan error, 1)
	go func() {
		idleDone <- m.client.Idle(stop, nil)
	}()

	m.log.Info("watching for new emails", zap.String("folder", m.config.Folder))

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-idleDone
			return ctx.Err()
		case <-changed:
			m.log.Debug("mailbox changed")

			close(stop)
			<-idleDone

			emails, err := m.FetchUnread(ctx, limit)
			switch {
			case errors.Is(err, ErrNoMessage):
			case err != nil:
				m.log.Error("failed to fetch new email", zap.Error(err))
			default:
				handle(emails)
			}

			stop = make(chan struct{})
			go func() {
				idleDone <- m.client.Idle(stop, nil)
			}()
		case err := <-idleDone:
			if err != nil {
				return fmt.Errorf("IDLE error: %w", err)
			}
			return nil
		}
	}
}

// mailboxChanges reads updates until done is closed, so the IMAP reader
// never blocks while a fetch or handler runs. Mailbox changes that arrive
// while one is already pending are merged into it.
func mailboxChanges(updates <-chan client.Update, done <-chan struct{}) <-chan struct{} {
	changed := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-done:
				return
			case u := <-updates:
				if _, ok := u.(*client.MailboxUpdate); !ok {
					continue
				}
				select {
				case changed <- struct{}{}:
				default:
				}
			}
		}
	}()
	return changed
}
