package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/aligner-portal/internal/repository"
)

func TestCategories(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	c, err := h.category.Create(ctx, h.bareAdmin, "  Class II ")
	require.NoError(t, err)
	assert.Equal(t, "Class II", c.Category)

	_, err = h.category.Create(ctx, h.admin, "Class II")
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = h.category.Create(ctx, h.doctor, "Open bite")
	assert.ErrorIs(t, err, repository.ErrForbidden)

	var verr *ValidationError
	_, err = h.category.Create(ctx, h.admin, "")
	assert.ErrorAs(t, err, &verr)

	list, err := h.category.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, h.category.Delete(ctx, h.doctor, c.ID), repository.ErrForbidden)
	require.NoError(t, h.category.Delete(ctx, h.admin, c.ID))
	assert.ErrorIs(t, h.category.Delete(ctx, h.admin, c.ID), repository.ErrNotFound)
}
