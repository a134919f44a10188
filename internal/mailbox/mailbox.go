// Package mailbox acquires candidate proposal emails and parses them.
package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
)

// Criteria selects candidate messages
type Criteria struct {
	Since         time.Time
	SubjectMarker string
}

// RawMessage is an unparsed RFC 822 message as delivered by a fetcher
type RawMessage struct {
	Ref        string
	Data       []byte
	ReceivedAt time.Time
}

// Fetcher returns unseen candidate messages. Fetching marks them seen.
type Fetcher interface {
	FetchCandidates(ctx context.Context, criteria Criteria) ([]RawMessage, error)
}

// Message is a parsed inbound email
type Message struct {
	ID         string
	From       string
	Subject    string
	Text       string
	HTML       string
	ReceivedAt time.Time
}

// Body prefers the plain text part
func (m *Message) Body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.HTML
}

// Parse reads a raw message. Missing headers yield empty fields, not errors.
func Parse(raw RawMessage) (*Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw.Data))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	if err != nil {
		logrus.WithField("ref", raw.Ref).Warnf("Unknown charset in message: %v", err)
	}
	defer mr.Close()

	msg := &Message{ReceivedAt: raw.ReceivedAt}
	h := mr.Header

	if id, err := h.MessageID(); err == nil {
		msg.ID = strings.TrimSpace(id)
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = strings.TrimSpace(from[0].Address)
	}
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	}
	if msg.ReceivedAt.IsZero() {
		if date, err := h.Date(); err == nil {
			msg.ReceivedAt = date
		}
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return msg, fmt.Errorf("failed to read part: %w", err)
		}
		if p == nil {
			continue
		}

		inline, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		content, err := io.ReadAll(p.Body)
		if err != nil {
			return msg, fmt.Errorf("failed to read part body: %w", err)
		}

		switch contentType {
		case "text/plain", "":
			if msg.Text == "" {
				msg.Text = string(content)
			}
		case "text/html":
			if msg.HTML == "" {
				msg.HTML = string(content)
			}
		}
	}

	return msg, nil
}
