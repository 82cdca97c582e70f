package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/aligner-portal/internal/model"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column).
// Users and distributers share the table, told apart by subject_kind.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, sub model.Subject, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (subject_kind, subject_id, token_hash, expires_at) VALUES (?,?,?,?)",
		string(sub.Kind), sub.ID, tokenHash, exp)
	return err
}

// ValidateRefresh returns the subject if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (model.Subject, error) {
	var (
		kind      string
		id        uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT subject_kind, subject_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&kind, &id, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subject{}, ErrNotFound
	}
	if err != nil {
		return model.Subject{}, err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return model.Subject{}, ErrNotFound
	}
	return model.Subject{Kind: model.SubjectKind(kind), ID: id}, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAll revokes every active token of a subject.
func (r *TokenRepo) RevokeAll(ctx context.Context, sub model.Subject) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE subject_kind=? AND subject_id=? AND revoked_at IS NULL",
		string(sub.Kind), sub.ID)
	return err
}
