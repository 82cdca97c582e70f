package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/repository"
	"github.com/iliyamo/aligner-portal/internal/utils"
)

func TestAuthenticate(t *testing.T) {
	h := newHarness(t, false)

	res := h.gate.Authenticate(bearer(t, h.doctor))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, h.doctor, res.Actor)

	res = h.gate.Authenticate(bearer(t, h.fullDistributor))
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Actor.IsDistributor())

	forged, err := utils.NewAccessToken(testSecret, utils.AccessClaims{Subject: 1, Role: "distributor", Kind: "user"}, 5)
	require.NoError(t, err)
	otherKey, err := utils.NewAccessToken("not-the-secret", utils.AccessClaims{Subject: 1, Role: "admin", Kind: "user"}, 5)
	require.NoError(t, err)
	unknownRole, err := utils.NewAccessToken(testSecret, utils.AccessClaims{Subject: 1, Role: "owner", Kind: "user"}, 5)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"empty":         "",
		"no scheme":     "abc.def.ghi",
		"blank bearer":  "Bearer   ",
		"garbage":       "Bearer abc.def.ghi",
		"kind mismatch": "Bearer " + forged.Token,
		"wrong key":     "Bearer " + otherKey.Token,
		"unknown role":  "Bearer " + unknownRole.Token,
		"basic auth":    "Basic dXNlcjpwYXNz",
	} {
		t.Run(name, func(t *testing.T) {
			res := h.gate.Authenticate(header)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := newHarness(t, false)

	assert.NoError(t, h.gate.RequireRole(h.super, model.RoleAdmin))
	assert.NoError(t, h.gate.RequireRole(h.doctor, model.RoleAdmin, model.RoleDoctor))
	assert.ErrorIs(t, h.gate.RequireRole(h.planner, model.RoleAdmin, model.RoleDoctor), repository.ErrForbidden)
	assert.ErrorIs(t, h.gate.RequireRole(h.admin, model.RoleSuperAdmin), repository.ErrForbidden)
}

func TestRequireCapabilityReloadsUser(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.gate.RequireCapability(ctx, h.super, model.CapAll)
	assert.NoError(t, err)
	_, err = h.gate.RequireCapability(ctx, h.admin, model.CapPriceUpdate)
	assert.NoError(t, err)
	_, err = h.gate.RequireCapability(ctx, h.bareAdmin, model.CapPriceUpdate)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = h.gate.RequireCapability(ctx, h.bareAdmin, 0)
	assert.NoError(t, err)

	// a token still claiming admin after the account was suspended
	require.NoError(t, h.users.SetSuspended(ctx, h.admin.ID, true))
	_, err = h.gate.RequireCapability(ctx, h.admin, 0)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// a distributer id that collides with an admin id
	_, err = h.gate.RequireCapability(ctx, Actor{ID: h.super.ID, Role: model.RoleAdmin, Kind: model.SubjectDistributer}, 0)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, err = h.gate.RequireSuperAdmin(ctx, h.bareAdmin)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = h.gate.RequireSuperAdmin(ctx, h.super)
	assert.NoError(t, err)
}
