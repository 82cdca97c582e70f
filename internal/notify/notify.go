// Package notify defines the e-mail notifier boundary used by the case
// workflow. Delivery is best-effort: callers log a failed Send and move on.
package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Email is one outbound message. HTML is the full body.
type Email struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ErrNoRecipients is returned by Validate when To is empty.
var ErrNoRecipients = errors.New("email has no recipients")

// Validate checks the minimum an e-mail needs before it is handed off.
func (e Email) Validate() error {
	if len(e.To) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(e.Subject) == "" {
		return errors.New("email subject is empty")
	}
	return nil
}

// Notifier delivers or enqueues an e-mail.
type Notifier interface {
	Send(ctx context.Context, e Email) error
}

// LogNotifier writes e-mails to the log instead of sending them. Used in
// development and when no transport is configured.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Send(_ context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	n.Log.Info("email (log transport)",
		zap.Strings("to", e.To),
		zap.Strings("cc", e.Cc),
		zap.String("subject", e.Subject),
		zap.Int("html_bytes", len(e.HTML)),
	)
	return nil
}
