package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/repository"
)

// UserService holds the account administration operations.
type UserService struct {
	st         Stores
	gate       *Gate
	bcryptCost int
	log        *zap.Logger
}

func NewUserService(st Stores, gate *Gate, bcryptCost int, log *zap.Logger) *UserService {
	return &UserService{st: st, gate: gate, bcryptCost: bcryptCost, log: log}
}

type AccountInput struct {
	Name     string
	Email    string
	Password string
}

func (s *UserService) createUser(ctx context.Context, in AccountInput, role model.Role, caps model.Capability) (Profile, error) {
	email := normalizeEmail(in.Email)
	if err := validateAccount(in.Name, email, in.Password); err != nil {
		return Profile{}, err
	}
	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return Profile{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{Name: strings.TrimSpace(in.Name), Email: email, PasswordHash: hash, Role: role, Capabilities: caps}
	id, err := s.st.Users.Create(ctx, u)
	if err != nil {
		return Profile{}, err
	}
	u.ID = id
	return userProfile(u), nil
}

func parseCaps(names []string) (model.Capability, error) {
	caps, unknown := model.ParseCapabilities(names)
	if len(unknown) > 0 {
		return 0, invalid("unknown capabilities: " + strings.Join(unknown, ", "))
	}
	return caps, nil
}

// EnsureSuperAdmin creates the single super-admin account at startup. It
// is a no-op when that e-mail already holds the role; any other existing
// super-admin makes it fail with ErrConflict.
func (s *UserService) EnsureSuperAdmin(ctx context.Context, in AccountInput) (Profile, error) {
	existing, err := s.st.Users.GetByEmail(ctx, in.Email)
	if err == nil {
		if existing.Role == model.RoleSuperAdmin {
			return userProfile(existing), nil
		}
		return Profile{}, repository.ErrEmailExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Profile{}, err
	}
	p, err := s.createUser(ctx, in, model.RoleSuperAdmin, 0)
	if err != nil {
		return Profile{}, err
	}
	s.log.Info("super-admin created", zap.Uint64("user_id", p.ID))
	return p, nil
}

// CreateAdmin is reserved to the super-admin.
func (s *UserService) CreateAdmin(ctx context.Context, a Actor, in AccountInput, capNames []string) (Profile, error) {
	if _, err := s.gate.RequireSuperAdmin(ctx, a); err != nil {
		return Profile{}, err
	}
	caps, err := parseCaps(capNames)
	if err != nil {
		return Profile{}, err
	}
	return s.createUser(ctx, in, model.RoleAdmin, caps)
}

// SetCapabilities replaces an admin's capability set. Super-admin only.
func (s *UserService) SetCapabilities(ctx context.Context, a Actor, userID uint64, capNames []string) (Profile, error) {
	if _, err := s.gate.RequireSuperAdmin(ctx, a); err != nil {
		return Profile{}, err
	}
	caps, err := parseCaps(capNames)
	if err != nil {
		return Profile{}, err
	}
	target, err := s.st.Users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if target.Role != model.RoleAdmin {
		return Profile{}, invalid("capabilities can only be set on admins")
	}
	if err := s.st.Users.UpdateCapabilities(ctx, userID, caps); err != nil {
		return Profile{}, err
	}
	target.Capabilities = caps
	return userProfile(target), nil
}

// ResetAdminPassword lets the super-admin set another admin's password.
func (s *UserService) ResetAdminPassword(ctx context.Context, a Actor, userID uint64, password string) error {
	if _, err := s.gate.RequireSuperAdmin(ctx, a); err != nil {
		return err
	}
	if len(password) < minPasswordLen {
		return invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	target, err := s.st.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.Role != model.RoleAdmin {
		return repository.ErrForbidden
	}
	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.st.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.st.Tokens.RevokeAll(ctx, model.Subject{Kind: model.SubjectUser, ID: userID}); err != nil {
		s.log.Warn("revoke sessions after reset failed", zap.Uint64("user_id", userID), zap.Error(err))
	}
	return nil
}

// CreatePlanner requires the planner capability.
func (s *UserService) CreatePlanner(ctx context.Context, a Actor, in AccountInput) (Profile, error) {
	if _, err := s.gate.RequireCapability(ctx, a, model.CapPlanner); err != nil {
		return Profile{}, err
	}
	return s.createUser(ctx, in, model.RolePlanner, 0)
}

// CreateDistributer registers a distributer account. New distributers
// start with view access unless access says otherwise.
func (s *UserService) CreateDistributer(ctx context.Context, a Actor, in AccountInput, access model.DistributerAccess) (Profile, error) {
	if _, err := s.gate.RequireCapability(ctx, a, 0); err != nil {
		return Profile{}, err
	}
	if access == "" {
		access = model.AccessView
	}
	if !access.IsValid() {
		return Profile{}, invalid("access must be view or full")
	}
	email := normalizeEmail(in.Email)
	if err := validateAccount(in.Name, email, in.Password); err != nil {
		return Profile{}, err
	}
	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return Profile{}, fmt.Errorf("hash password: %w", err)
	}
	d := model.Distributer{Name: strings.TrimSpace(in.Name), Email: email, PasswordHash: hash, Access: access}
	id, err := s.st.Distributers.Create(ctx, d)
	if err != nil {
		return Profile{}, err
	}
	d.ID = id
	return distributerProfile(d), nil
}

// SetDistributerAccess requires the distributer_access capability.
func (s *UserService) SetDistributerAccess(ctx context.Context, a Actor, distID uint64, access model.DistributerAccess) error {
	if _, err := s.gate.RequireCapability(ctx, a, model.CapDistributerAccess); err != nil {
		return err
	}
	if !access.IsValid() {
		return invalid("access must be view or full")
	}
	return s.st.Distributers.UpdateAccess(ctx, distID, access)
}

// SetSuspended soft-disables or re-enables an account. Admin accounts can
// only be suspended by the super-admin, who can never be suspended.
func (s *UserService) SetSuspended(ctx context.Context, a Actor, userID uint64, suspended bool) error {
	if _, err := s.gate.RequireCapability(ctx, a, 0); err != nil {
		return err
	}
	if userID == a.ID {
		return invalid("cannot change your own suspension")
	}
	target, err := s.st.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.Role == model.RoleSuperAdmin || (target.Role == model.RoleAdmin && !a.IsSuperAdmin()) {
		return repository.ErrForbidden
	}
	if err := s.st.Users.SetSuspended(ctx, userID, suspended); err != nil {
		return err
	}
	if suspended {
		if err := s.st.Tokens.RevokeAll(ctx, model.Subject{Kind: model.SubjectUser, ID: userID}); err != nil {
			s.log.Warn("revoke sessions after suspend failed", zap.Uint64("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// AssignDistributer scopes a doctor to a distributer, or unscopes it when
// distID is nil.
func (s *UserService) AssignDistributer(ctx context.Context, a Actor, doctorID uint64, distID *uint64) error {
	if _, err := s.gate.RequireCapability(ctx, a, 0); err != nil {
		return err
	}
	if distID != nil {
		if _, err := s.st.Distributers.GetByID(ctx, *distID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid("distributerId does not exist")
			}
			return err
		}
	}
	// the store only matches doctor rows; anything else is ErrNotFound
	return s.st.Users.SetDistributer(ctx, doctorID, distID)
}

// List returns accounts of one role. Distributers come from their own table.
func (s *UserService) List(ctx context.Context, a Actor, role model.Role) ([]Profile, error) {
	if !a.IsAdmin() {
		return nil, repository.ErrForbidden
	}
	if !role.IsValid() {
		return nil, invalid("role is invalid")
	}
	if role == model.RoleDistributor {
		ds, err := s.st.Distributers.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Profile, 0, len(ds))
		for _, d := range ds {
			out = append(out, distributerProfile(d))
		}
		return out, nil
	}
	us, err := s.st.Users.ListByRoles(ctx, role)
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(us))
	for _, u := range us {
		out = append(out, userProfile(u))
	}
	return out, nil
}
