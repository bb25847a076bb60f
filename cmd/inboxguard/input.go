package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inboxguard/inboxguard/internal/body"
	"github.com/inboxguard/inboxguard/internal/inbox"
)

const maxInputBytes = 25 << 20

// apiMessage is the subset of a Gmail API message resource we read. A bare
// part tree is accepted too.
type apiMessage struct {
	ID      string     `json:"id"`
	Payload *body.Part `json:"payload"`
}

// loadEmail reads a message from a file, or stdin when path is "-".
// The format follows the extension: .json for a payload, .html for a saved
// message page, anything else is parsed as RFC 5322.
func loadEmail(path string) (inbox.Email, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return inbox.Email{}, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return inbox.Email{}, fmt.Errorf("failed to read input: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return emailFromJSON(data)
	case ".html", ".htm":
		return inbox.ParsePage(bytes.NewReader(data))
	default:
		return emailFromMIME(data)
	}
}

func emailFromJSON(data []byte) (inbox.Email, error) {
	var msg apiMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return inbox.Email{}, fmt.Errorf("invalid JSON message: %w", err)
	}

	part := msg.Payload
	if part == nil {
		part = &body.Part{}
		if err := json.Unmarshal(data, part); err != nil {
			return inbox.Email{}, fmt.Errorf("invalid JSON payload: %w", err)
		}
		if part.MimeType == "" && len(part.Parts) == 0 && part.Data() == "" {
			return inbox.Email{}, errors.New("JSON has no payload")
		}
	}

	e := inbox.FromPayload(part)
	if e.MessageID == "" {
		e.MessageID = msg.ID
	}
	e.Source = inbox.SourceFile
	return e, nil
}

func emailFromMIME(data []byte) (inbox.Email, error) {
	part, err := body.ReadMIME(bytes.NewReader(data))
	if err != nil {
		return inbox.Email{}, fmt.Errorf("failed to parse message: %w", err)
	}
	e := inbox.FromPayload(part)
	e.Source = inbox.SourceFile
	return e, nil
}
