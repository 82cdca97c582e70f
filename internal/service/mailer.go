package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/metrics"
	"github.com/iliyamo/aligner-portal/internal/notify"
)

// Mailer is the best-effort side channel of every workflow. Deliver never
// returns an error: failures are logged and counted, never retried.
type Mailer struct {
	n       notify.Notifier
	log     *zap.Logger
	m       *metrics.Collector
	timeout time.Duration
}

func NewMailer(n notify.Notifier, log *zap.Logger, m *metrics.Collector) *Mailer {
	return &Mailer{n: n, log: log, m: m, timeout: 10 * time.Second}
}

// Deliver sends e when it has at least one recipient. It detaches from the
// request's cancellation so a client hang-up does not abort a send that
// has already started.
func (m *Mailer) Deliver(ctx context.Context, e notify.Email) {
	if len(e.To) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	err := m.n.Send(ctx, e)
	m.m.EmailSent(err)
	if err != nil {
		m.log.Warn("notification email failed",
			zap.Strings("to", e.To),
			zap.String("subject", e.Subject),
			zap.Error(err),
		)
	}
}
