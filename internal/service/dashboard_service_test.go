package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardIsScoped(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	mine := h.newCase(t, h.doctor, "Ana Lima")
	h.newCase(t, h.otherDoctor, "Bo Chen")
	_, err := h.caseSvc.SetPrice(ctx, h.admin, mine.ID, ptr(int64(1000)), ptr(int64(400)))
	require.NoError(t, err)
	_, err = h.collab.AddComment(ctx, h.doctor, mine.ID, "ping")
	require.NoError(t, err)
	_, err = h.specials.Create(ctx, h.admin, SpecialCommentInput{Title: "t", Comment: "c"})
	require.NoError(t, err)

	doc, err := h.dash.Stats(ctx, h.doctor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Total)
	assert.Equal(t, int64(600), doc.Amount.Pending)
	docUnread, err := h.dash.Unread(ctx, h.doctor)
	require.NoError(t, err)
	require.NotNil(t, docUnread.Notifications)
	assert.Equal(t, int64(0), *docUnread.Notifications)
	assert.Nil(t, docUnread.SpecialComments)

	adm, err := h.dash.Stats(ctx, h.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), adm.Total)
	assert.Equal(t, int64(2), adm.ByStatus["setup pending"])
	admUnread, err := h.dash.Unread(ctx, h.admin)
	require.NoError(t, err)
	require.NotNil(t, admUnread.Notifications)
	assert.Equal(t, int64(1), *admUnread.Notifications)
	require.NotNil(t, admUnread.SpecialComments)
	assert.Equal(t, int64(1), *admUnread.SpecialComments)

	pl, err := h.dash.Stats(ctx, h.planner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pl.Total)
	plUnread, err := h.dash.Unread(ctx, h.planner)
	require.NoError(t, err)
	assert.Nil(t, plUnread.Notifications)

	dist, err := h.dash.Stats(ctx, h.viewOnly)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dist.Total)
}

func TestUnreadCountsTrackNewActivity(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	p := h.newCase(t, h.doctor, "Ana Lima")

	before, err := h.dash.Unread(ctx, h.admin)
	require.NoError(t, err)
	require.NotNil(t, before.Notifications)

	_, err = h.collab.AddComment(ctx, h.doctor, p.ID, "new scans uploaded")
	require.NoError(t, err)

	after, err := h.dash.Unread(ctx, h.admin)
	require.NoError(t, err)
	assert.Equal(t, *before.Notifications+1, *after.Notifications)
}
