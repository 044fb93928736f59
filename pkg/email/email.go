package email

import (
	"context"
	"errors"
	"strings"
)

var ErrNoRecipient = errors.New("email: at least one recipient is required")

// Message is a single outbound email.
type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Validate checks the fields every transport needs.
func (m *Message) Validate() error {
	if m == nil || len(m.To) == 0 {
		return ErrNoRecipient
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return ErrNoRecipient
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("email: subject is required")
	}
	if m.TextBody == "" && m.HTMLBody == "" {
		return errors.New("email: body is required")
	}
	return nil
}

// Sender delivers messages. Implementations must honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}
