package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/aligner-portal/internal/repository"
)

func TestMarkNotificationReadOnce(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	p := h.newCase(t, h.doctor, "Ana Lima")
	_, err := h.collab.AddComment(ctx, h.doctor, p.ID, "first")
	require.NoError(t, err)
	_, err = h.collab.AddComment(ctx, h.doctor, p.ID, "second")
	require.NoError(t, err)

	n, err := h.inbox.UnreadCount(ctx, h.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := h.inbox.List(ctx, h.bareAdmin)
	require.NoError(t, err)
	require.Len(t, list, 2)
	target := list[0].ID

	// the doctor cannot touch the admin inbox
	_, err = h.inbox.MarkRead(ctx, h.doctor, target)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := h.inbox.MarkRead(ctx, h.admin, target)
	require.NoError(t, err)
	assert.True(t, got.Read)

	_, err = h.inbox.MarkRead(ctx, h.super, target)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err = h.inbox.UnreadCount(ctx, h.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err = h.inbox.List(ctx, h.admin)
	require.NoError(t, err)
	assert.False(t, list[0].Read)
	assert.True(t, list[1].Read)
}

func TestInboxRequiresAdminOrDoctor(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.inbox.List(ctx, h.planner)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = h.inbox.UnreadCount(ctx, h.fullDistributor)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	list, err := h.inbox.List(ctx, h.doctor)
	require.NoError(t, err)
	assert.Empty(t, list)
}
