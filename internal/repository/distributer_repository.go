package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/aligner-portal/internal/model"
)

const distributerColumns = "id,name,email,password_hash,access,created_at,updated_at"

// DistributerRepo persists distributer accounts. Distributers do not own
// doctors; doctors point at them through users.distributer_id.
type DistributerRepo struct{ DB *sql.DB }

func NewDistributerRepo(db *sql.DB) *DistributerRepo { return &DistributerRepo{DB: db} }

func scanDistributer(s rowScanner) (model.Distributer, error) {
	var (
		d      model.Distributer
		access string
	)
	if err := s.Scan(&d.ID, &d.Name, &d.Email, &d.PasswordHash, &access, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return model.Distributer{}, err
	}
	d.Access = model.DistributerAccess(access)
	return d, nil
}

// Create inserts a distributer with an already hashed password.
func (r *DistributerRepo) Create(ctx context.Context, d model.Distributer) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(d.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO distributers (name, email, password_hash, access) VALUES (?,?,?,?)",
		d.Name, email, d.PasswordHash, string(d.Access))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *DistributerRepo) GetByID(ctx context.Context, id uint64) (model.Distributer, error) {
	d, err := scanDistributer(r.DB.QueryRowContext(ctx,
		"SELECT "+distributerColumns+" FROM distributers WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Distributer{}, ErrNotFound
	}
	return d, err
}

func (r *DistributerRepo) GetByEmail(ctx context.Context, email string) (model.Distributer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	d, err := scanDistributer(r.DB.QueryRowContext(ctx,
		"SELECT "+distributerColumns+" FROM distributers WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Distributer{}, ErrNotFound
	}
	return d, err
}

func (r *DistributerRepo) List(ctx context.Context) ([]model.Distributer, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+distributerColumns+" FROM distributers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Distributer{}
	for rows.Next() {
		d, err := scanDistributer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateAccess switches a distributer between view and full access.
func (r *DistributerRepo) UpdateAccess(ctx context.Context, id uint64, access model.DistributerAccess) error {
	return r.execOne(ctx, "UPDATE distributers SET access=? WHERE id=?", string(access), id)
}

func (r *DistributerRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.execOne(ctx, "UPDATE distributers SET password_hash=? WHERE id=?", hash, id)
}

func (r *DistributerRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
