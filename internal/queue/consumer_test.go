package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/notify"
)

type captureSender struct {
	got []notify.Email
	err error
}

func (s *captureSender) Send(_ context.Context, e notify.Email) error {
	s.got = append(s.got, e)
	return s.err
}

func TestHandleDeliversEvent(t *testing.T) {
	sender := &captureSender{}
	var results []error
	c := &Consumer{Sender: sender, Log: zap.NewNop(), OnResult: func(err error) { results = append(results, err) }}

	body, err := json.Marshal(EmailRequestedEvent{
		To: []string{"doc@clinic.io"}, Subject: "Case AL-1 updated", HTML: "<p>x</p>", RequestedAt: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), body))
	require.Len(t, sender.got, 1)
	assert.Equal(t, []string{"doc@clinic.io"}, sender.got[0].To)
	assert.Equal(t, []error{nil}, results)
}

func TestHandleReportsFailures(t *testing.T) {
	c := &Consumer{Sender: &captureSender{err: errors.New("relay down")}, Log: zap.NewNop()}
	assert.Error(t, c.handle(context.Background(), []byte(`{"to":["a@b.io"],"subject":"s"}`)))
	assert.Error(t, c.handle(context.Background(), []byte(`not json`)))
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Consumer{URL: "amqp://127.0.0.1:1/", Queue: "notify.email", Sender: &captureSender{}, Log: zap.NewNop()}
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestPublisherValidatesBeforeDial(t *testing.T) {
	p := NewPublisher("amqp://127.0.0.1:1/", "notify.email", zap.NewNop())
	assert.ErrorIs(t, p.Send(context.Background(), notify.Email{Subject: "x"}), notify.ErrNoRecipients)
}
