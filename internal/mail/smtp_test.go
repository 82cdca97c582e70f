package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/iliyamo/aligner-portal/internal/notify"
)

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("portal@aligner.io", notify.Email{
		To:      []string{"doc@clinic.io", "admin@aligner.io"},
		Cc:      []string{"dist@partner.io"},
		Subject: "Case AL-1 updated",
		HTML:    "<p>approved</p>",
	})
	require.NoError(t, err)
	assert.Len(t, msg.GetTo(), 2)
	assert.Len(t, msg.GetCc(), 1)
	assert.Equal(t, []string{"Case AL-1 updated"}, msg.GetGenHeader(gomail.HeaderSubject))
}

func TestBuildMessageRejects(t *testing.T) {
	_, err := buildMessage("portal@aligner.io", notify.Email{Subject: "x"})
	assert.ErrorIs(t, err, notify.ErrNoRecipients)

	_, err = buildMessage("portal@aligner.io", notify.Email{To: []string{"not an address"}, Subject: "x"})
	assert.Error(t, err)
}
