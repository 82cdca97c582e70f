package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/metrics"
	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/repository"
	"github.com/iliyamo/aligner-portal/internal/utils"
)

const minPasswordLen = 8

// hashPassword reports an over-long password as a validation error.
func hashPassword(plain string, cost int) (string, error) {
	hash, err := utils.HashPassword(plain, cost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", invalid(fmt.Sprintf("password must be at most %d bytes", utils.MaxPasswordBytes))
	}
	return hash, err
}

// Profile is the public view of a user or distributer account.
type Profile struct {
	ID            uint64   `json:"id"`
	Kind          string   `json:"kind"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Role          string   `json:"role"`
	Capabilities  []string `json:"capabilities,omitempty"`
	DistributerID *uint64  `json:"distributerId,omitempty"`
	Access        string   `json:"access,omitempty"`
	IsSuspended   bool     `json:"isSuspended"`
}

func userProfile(u model.User) Profile {
	return Profile{
		ID:            u.ID,
		Kind:          string(model.SubjectUser),
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(u.Role),
		Capabilities:  u.EffectiveCapabilities().Names(),
		DistributerID: u.DistributerID,
		IsSuspended:   u.IsSuspended,
	}
}

func distributerProfile(d model.Distributer) Profile {
	return Profile{
		ID:     d.ID,
		Kind:   string(model.SubjectDistributer),
		Name:   d.Name,
		Email:  d.Email,
		Role:   string(model.RoleDistributor),
		Access: string(d.Access),
	}
}

// Session is what a successful login, register or refresh returns.
type Session struct {
	Profile Profile
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// AuthService issues and rotates credentials for users and distributers.
type AuthService struct {
	st  Stores
	cfg AuthConfig
	log *zap.Logger
	m   *metrics.Collector
}

func NewAuthService(st Stores, cfg AuthConfig, log *zap.Logger, m *metrics.Collector) *AuthService {
	return &AuthService{st: st, cfg: cfg, log: log, m: m}
}

// validateAccount checks the fields every new account needs.
func validateAccount(name, email, password string) error {
	var bad []string
	if strings.TrimSpace(name) == "" {
		bad = append(bad, "name is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		bad = append(bad, "email is invalid")
	}
	if len(password) < minPasswordLen {
		bad = append(bad, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	return invalid(bad...)
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// Register creates a doctor account and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if err := validateAccount(name, email, password); err != nil {
		return Session{}, err
	}
	hash, err := hashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{Name: strings.TrimSpace(name), Email: email, PasswordHash: hash, Role: model.RoleDoctor}
	id, err := s.st.Users.Create(ctx, u)
	if err != nil {
		return Session{}, err
	}
	u.ID = id
	return s.issue(ctx, userProfile(u))
}

// Login checks users first, then distributers.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, invalid("email and password are required")
	}

	u, err := s.st.Users.GetByEmail(ctx, email)
	if err == nil {
		if !utils.VerifyPassword(u.PasswordHash, password) {
			return Session{}, s.badLogin(email)
		}
		if u.IsSuspended {
			s.m.AuthFailure("suspended")
			return Session{}, ErrSuspended
		}
		return s.issue(ctx, userProfile(u))
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Session{}, fmt.Errorf("load user: %w", err)
	}

	d, err := s.st.Distributers.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(password, s.cfg.BcryptCost)
		return Session{}, s.badLogin(email)
	}
	if err != nil {
		return Session{}, fmt.Errorf("load distributer: %w", err)
	}
	if !utils.VerifyPassword(d.PasswordHash, password) {
		return Session{}, s.badLogin(email)
	}
	return s.issue(ctx, distributerProfile(d))
}

func (s *AuthService) badLogin(email string) error {
	s.m.AuthFailure("bad_credentials")
	s.log.Warn("failed login attempt", zap.String("email", email))
	return ErrInvalidCredentials
}

// Refresh rotates a refresh token: the old one is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, invalid("refresh_token is required")
	}
	hash := utils.HashRefreshRaw(raw)
	sub, err := s.st.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, fmt.Errorf("validate refresh: %w", err)
	}
	if err := s.st.Tokens.RevokeByHash(ctx, hash); err != nil {
		return Session{}, fmt.Errorf("revoke refresh: %w", err)
	}
	prof, err := s.loadProfile(ctx, sub)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, err
	}
	if prof.IsSuspended {
		return Session{}, ErrSuspended
	}
	return s.issue(ctx, prof)
}

// Logout revokes one refresh token when raw is given, otherwise every
// token of the authenticated caller.
func (s *AuthService) Logout(ctx context.Context, raw string, caller *Actor) error {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := s.st.Tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}
		return s.st.Tokens.RevokeByHash(ctx, hash)
	}
	if caller != nil {
		return s.st.Tokens.RevokeAll(ctx, caller.Subject())
	}
	return invalid("provide Authorization header or refresh_token")
}

// Me returns the caller's current profile.
func (s *AuthService) Me(ctx context.Context, a Actor) (Profile, error) {
	return s.loadProfile(ctx, a.Subject())
}

// ChangePassword updates the caller's own password after checking the
// current one, then signs out every other session.
func (s *AuthService) ChangePassword(ctx context.Context, a Actor, current, next string) error {
	if len(next) < minPasswordLen {
		return invalid(fmt.Sprintf("newPassword must be at least %d characters", minPasswordLen))
	}
	var hash string
	switch a.Kind {
	case model.SubjectDistributer:
		d, err := s.st.Distributers.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		hash = d.PasswordHash
	default:
		u, err := s.st.Users.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		hash = u.PasswordHash
	}
	if !utils.VerifyPassword(hash, current) {
		return ErrInvalidCredentials
	}
	newHash, err := hashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if a.Kind == model.SubjectDistributer {
		err = s.st.Distributers.UpdatePassword(ctx, a.ID, newHash)
	} else {
		err = s.st.Users.UpdatePassword(ctx, a.ID, newHash)
	}
	if err != nil {
		return err
	}
	if err := s.st.Tokens.RevokeAll(ctx, a.Subject()); err != nil {
		s.log.Warn("revoke sessions after password change failed", zap.Uint64("id", a.ID), zap.Error(err))
	}
	return nil
}

func (s *AuthService) loadProfile(ctx context.Context, sub model.Subject) (Profile, error) {
	if sub.Kind == model.SubjectDistributer {
		d, err := s.st.Distributers.GetByID(ctx, sub.ID)
		if err != nil {
			return Profile{}, err
		}
		return distributerProfile(d), nil
	}
	u, err := s.st.Users.GetByID(ctx, sub.ID)
	if err != nil {
		return Profile{}, err
	}
	return userProfile(u), nil
}

// issue signs an access token and stores a fresh refresh token.
func (s *AuthService) issue(ctx context.Context, p Profile) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, utils.AccessClaims{
		Subject: p.ID,
		Role:    p.Role,
		Kind:    p.Kind,
	}, s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, fmt.Errorf("issue access: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh: %w", err)
	}
	sub := model.Subject{Kind: model.SubjectKind(p.Kind), ID: p.ID}
	if err := s.st.Tokens.StoreRefresh(ctx, sub, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, fmt.Errorf("save refresh: %w", err)
	}
	return Session{Profile: p, Access: access, Refresh: refresh}, nil
}
