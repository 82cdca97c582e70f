package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/repository"
)

func TestEnsureSuperAdmin(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	p, err := h.accounts.EnsureSuperAdmin(ctx, AccountInput{Name: "Root", Email: "super@x.io", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, h.super.ID, p.ID)

	_, err = h.accounts.EnsureSuperAdmin(ctx, AccountInput{Name: "Root 2", Email: "root2@x.io", Password: testPassword})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = h.accounts.EnsureSuperAdmin(ctx, AccountInput{Name: "Doc", Email: "doc@x.io", Password: testPassword})
	assert.ErrorIs(t, err, repository.ErrEmailExists)
}

func TestCreateAdminAndCapabilities(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	in := AccountInput{Name: "Billing", Email: "billing@x.io", Password: testPassword}

	_, err := h.accounts.CreateAdmin(ctx, h.admin, in, nil)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	var verr *ValidationError
	_, err = h.accounts.CreateAdmin(ctx, h.super, in, []string{"price_update", "launch_rockets"})
	assert.ErrorAs(t, err, &verr)

	p, err := h.accounts.CreateAdmin(ctx, h.super, in, []string{"price_update"})
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Role)
	assert.Equal(t, []string{"price_update"}, p.Capabilities)

	p, err = h.accounts.SetCapabilities(ctx, h.super, p.ID, []string{"planner", "special_comment"})
	require.NoError(t, err)
	assert.Equal(t, []string{"planner", "special_comment"}, p.Capabilities)

	_, err = h.accounts.SetCapabilities(ctx, h.super, h.doctor.ID, []string{"planner"})
	assert.ErrorAs(t, err, &verr)
	_, err = h.accounts.SetCapabilities(ctx, h.admin, p.ID, nil)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestResetAdminPassword(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	_, err := h.auth.Login(ctx, "admin2@x.io", testPassword)
	require.NoError(t, err)

	assert.ErrorIs(t, h.accounts.ResetAdminPassword(ctx, h.admin, h.bareAdmin.ID, "fresh-pass-1"), repository.ErrForbidden)
	assert.ErrorIs(t, h.accounts.ResetAdminPassword(ctx, h.super, h.doctor.ID, "fresh-pass-1"), repository.ErrForbidden)

	require.NoError(t, h.accounts.ResetAdminPassword(ctx, h.super, h.bareAdmin.ID, "fresh-pass-1"))
	assert.Equal(t, 0, h.tokens.active(h.bareAdmin.Subject()))
	_, err = h.auth.Login(ctx, "admin2@x.io", "fresh-pass-1")
	assert.NoError(t, err)
}

func TestCreatePlannerAndDistributer(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.accounts.CreatePlanner(ctx, h.bareAdmin, AccountInput{Name: "P2", Email: "p2@x.io", Password: testPassword})
	assert.ErrorIs(t, err, repository.ErrForbidden)
	pl, err := h.accounts.CreatePlanner(ctx, h.admin, AccountInput{Name: "P2", Email: "p2@x.io", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "planner", pl.Role)

	d, err := h.accounts.CreateDistributer(ctx, h.bareAdmin, AccountInput{Name: "South", Email: "south@x.io", Password: testPassword}, "")
	require.NoError(t, err)
	assert.Equal(t, "view", d.Access)
	assert.Equal(t, "distributer", d.Kind)

	_, err = h.accounts.CreateDistributer(ctx, h.admin, AccountInput{Name: "South", Email: "south@x.io", Password: testPassword}, model.AccessFull)
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	assert.ErrorIs(t, h.accounts.SetDistributerAccess(ctx, h.bareAdmin, d.ID, model.AccessFull), repository.ErrForbidden)
	require.NoError(t, h.accounts.SetDistributerAccess(ctx, h.admin, d.ID, model.AccessFull))
	got, err := h.dists.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccessFull, got.Access)

	var verr *ValidationError
	assert.ErrorAs(t, h.accounts.SetDistributerAccess(ctx, h.admin, d.ID, "owner"), &verr)
}

func TestSetSuspended(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	var verr *ValidationError
	assert.ErrorAs(t, h.accounts.SetSuspended(ctx, h.admin, h.admin.ID, true), &verr)
	assert.ErrorIs(t, h.accounts.SetSuspended(ctx, h.admin, h.bareAdmin.ID, true), repository.ErrForbidden)
	assert.ErrorIs(t, h.accounts.SetSuspended(ctx, h.admin, h.super.ID, true), repository.ErrForbidden)

	_, err := h.auth.Login(ctx, "doc@x.io", testPassword)
	require.NoError(t, err)
	require.NoError(t, h.accounts.SetSuspended(ctx, h.bareAdmin, h.doctor.ID, true))
	assert.Equal(t, 0, h.tokens.active(h.doctor.Subject()))
	_, err = h.auth.Login(ctx, "doc@x.io", testPassword)
	assert.ErrorIs(t, err, ErrSuspended)

	require.NoError(t, h.accounts.SetSuspended(ctx, h.super, h.bareAdmin.ID, true))
	_, err = h.gate.RequireCapability(ctx, h.bareAdmin, 0)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	require.NoError(t, h.accounts.SetSuspended(ctx, h.admin, h.doctor.ID, false))
	_, err = h.auth.Login(ctx, "doc@x.io", testPassword)
	assert.NoError(t, err)
}

func TestAssignDistributer(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	p := h.newCase(t, h.otherDoctor, "Bo Chen")

	missing := uint64(999)
	var verr *ValidationError
	assert.ErrorAs(t, h.accounts.AssignDistributer(ctx, h.admin, h.otherDoctor.ID, &missing), &verr)
	full := h.fullDistributor.ID
	assert.ErrorIs(t, h.accounts.AssignDistributer(ctx, h.admin, h.planner.ID, &full), repository.ErrNotFound)
	assert.ErrorIs(t, h.accounts.AssignDistributer(ctx, h.doctor, h.otherDoctor.ID, &full), repository.ErrForbidden)

	require.NoError(t, h.accounts.AssignDistributer(ctx, h.admin, h.otherDoctor.ID, &full))
	_, err := h.caseSvc.Get(ctx, h.fullDistributor, p.ID)
	assert.NoError(t, err)
	_, err = h.caseSvc.Get(ctx, h.viewOnly, p.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	require.NoError(t, h.accounts.AssignDistributer(ctx, h.admin, h.otherDoctor.ID, nil))
	_, err = h.caseSvc.Get(ctx, h.fullDistributor, p.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestListAccounts(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	ds, err := h.accounts.List(ctx, h.admin, model.RoleDistributor)
	require.NoError(t, err)
	assert.Len(t, ds, 2)

	docs, err := h.accounts.List(ctx, h.bareAdmin, model.RoleDoctor)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = h.accounts.List(ctx, h.doctor, model.RoleDoctor)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	var verr *ValidationError
	_, err = h.accounts.List(ctx, h.admin, "owner")
	assert.ErrorAs(t, err, &verr)
}
