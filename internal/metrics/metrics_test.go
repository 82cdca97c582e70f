package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("aligner")
	b := NewCollector("aligner")

	a.EmailSent(nil)
	a.EmailSent(errors.New("smtp down"))
	a.EmailSent(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.NotificationEmails.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.NotificationEmails.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.NotificationEmails.WithLabelValues("sent")))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() { c.EmailSent(nil) })
}

func TestHandlerServesRegistry(t *testing.T) {
	c := NewCollector("aligner")
	c.CasesCreatedTotal.Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "aligner_cases_created_total 1")
}
