package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDedupe(t *testing.T) {
	got := Dedupe("A@x.io", "", "b@x.io", " a@x.io ", "B@X.IO", "c@x.io")
	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, got)
	assert.Empty(t, Dedupe())
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := LogNotifier{Log: zap.New(core)}

	err := n.Send(context.Background(), Email{To: []string{"d@x.io"}, Subject: "Case updated", HTML: "<p>hi</p>"})
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.Len())

	err = n.Send(context.Background(), Email{Subject: "nobody"})
	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Equal(t, 1, logs.Len())
}

func TestTemplatesEscape(t *testing.T) {
	html := CommentAddedHTML(CaseEvent{CaseID: "AL-1", PatientName: "Jo", Actor: "Admin", Text: "<script>x</script>"})
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")

	assert.Contains(t, StatusChangedHTML(CaseEvent{CaseID: "AL-1", Status: "approved"}), "<b>approved</b>")
	assert.Contains(t, FileAddedHTML(CaseEvent{CaseID: "AL-1", Text: "scan.pdf"}), "scan.pdf")
}
