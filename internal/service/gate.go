package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/repository"
	"github.com/iliyamo/aligner-portal/internal/utils"
)

// Actor is the authenticated caller resolved from an access token.
type Actor struct {
	ID   uint64
	Role model.Role
	Kind model.SubjectKind
}

func (a Actor) IsAdmin() bool       { return a.Role.IsAdmin() }
func (a Actor) IsSuperAdmin() bool  { return a.Role == model.RoleSuperAdmin }
func (a Actor) IsDoctor() bool      { return a.Role == model.RoleDoctor }
func (a Actor) IsPlanner() bool     { return a.Role == model.RolePlanner }
func (a Actor) IsDistributor() bool { return a.Kind == model.SubjectDistributer }

// Subject returns the token subject for refresh token bookkeeping.
func (a Actor) Subject() model.Subject { return model.Subject{Kind: a.Kind, ID: a.ID} }

// AuthResult is the outcome of Authenticate. Callers branch on Success.
type AuthResult struct {
	Success bool
	Actor   Actor
	Error   string
}

// Gate resolves bearer credentials and checks capabilities against the
// identity store.
type Gate struct {
	secret string
	users  UserStore
	log    *zap.Logger
}

func NewGate(secret string, users UserStore, log *zap.Logger) *Gate {
	return &Gate{secret: secret, users: users, log: log}
}

// Authenticate parses an Authorization header value. It never fails with
// an error value; a missing, malformed or expired credential yields
// Success=false.
func (g *Gate) Authenticate(header string) AuthResult {
	if !strings.HasPrefix(header, "Bearer ") {
		return AuthResult{Error: "missing bearer token"}
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return AuthResult{Error: "missing bearer token"}
	}
	cl, err := utils.ParseAccessToken(g.secret, raw)
	if err != nil {
		return AuthResult{Error: "invalid token"}
	}
	a := Actor{ID: cl.Subject, Role: model.Role(cl.Role), Kind: model.SubjectKind(cl.Kind)}
	if !a.Role.IsValid() {
		return AuthResult{Error: "invalid token"}
	}
	// a distributer id and a user id can collide; the pair must agree
	if (a.Kind == model.SubjectDistributer) != (a.Role == model.RoleDistributor) {
		return AuthResult{Error: "invalid token"}
	}
	return AuthResult{Success: true, Actor: a}
}

// RequireRole checks the token role. Admin in roles also admits the super-admin.
func (g *Gate) RequireRole(a Actor, roles ...model.Role) error {
	for _, r := range roles {
		if a.Role == r || (r == model.RoleAdmin && a.IsAdmin()) {
			return nil
		}
	}
	return repository.ErrForbidden
}

// RequireCapability reloads the caller from the identity store and checks
// that it is an active admin holding want. Token claims are not trusted for
// capabilities since they change after issuance. Pass 0 to only require an
// active admin.
func (g *Gate) RequireCapability(ctx context.Context, a Actor, want model.Capability) (model.User, error) {
	if !a.IsAdmin() || a.Kind != model.SubjectUser {
		return model.User{}, repository.ErrForbidden
	}
	u, err := g.users.GetByID(ctx, a.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, repository.ErrForbidden
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load actor: %w", err)
	}
	if u.IsSuspended || !u.Role.IsAdmin() {
		return model.User{}, repository.ErrForbidden
	}
	if !u.EffectiveCapabilities().Has(want) {
		g.log.Info("capability denied",
			zap.Uint64("user_id", u.ID),
			zap.Strings("want", want.Names()),
		)
		return model.User{}, repository.ErrForbidden
	}
	return u, nil
}

// RequireSuperAdmin reloads the caller and checks it is the active super-admin.
func (g *Gate) RequireSuperAdmin(ctx context.Context, a Actor) (model.User, error) {
	if !a.IsSuperAdmin() {
		return model.User{}, repository.ErrForbidden
	}
	u, err := g.RequireCapability(ctx, a, 0)
	if err != nil {
		return model.User{}, err
	}
	if u.Role != model.RoleSuperAdmin {
		return model.User{}, repository.ErrForbidden
	}
	return u, nil
}
