package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/aligner-portal/internal/model"
)

const userColumns = "id,name,email,password_hash,role,capabilities,distributer_id,is_suspended,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		role string
		dist sql.NullInt64
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Capabilities,
		&dist, &u.IsSuspended, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if dist.Valid {
		id := uint64(dist.Int64)
		u.DistributerID = &id
	}
	return u, nil
}

// isDuplicate reports whether err is a MySQL unique-key violation (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// Create inserts a user and returns its ID. The password must already be
// hashed. A duplicate email yields ErrEmailExists; a second super-admin
// trips the super_admin_guard unique column and yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, capabilities, distributer_id) VALUES (?,?,?,?,?,?)",
		u.Name, email, u.PasswordHash, string(u.Role), u.Capabilities, nullableID(u.DistributerID))
	if err != nil {
		if isDuplicate(err) {
			if strings.Contains(err.Error(), "super_admin_guard") {
				return 0, ErrConflict
			}
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

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// ListByRoles returns users holding any of the given roles, oldest first.
func (r *UserRepo) ListByRoles(ctx context.Context, roles ...model.Role) ([]model.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(roles)), ",")
	args := make([]any, len(roles))
	for i, role := range roles {
		args[i] = string(role)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role IN ("+marks+") ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// ListDoctorsByDistributer returns the doctors scoped to a distributer.
func (r *UserRepo) ListDoctorsByDistributer(ctx context.Context, distributerID uint64) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? AND distributer_id=? ORDER BY id",
		string(model.RoleDoctor), distributerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]model.User, error) {
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.execOne(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
}

// UpdateCapabilities replaces the capability bit set of a user.
func (r *UserRepo) UpdateCapabilities(ctx context.Context, id uint64, caps model.Capability) error {
	return r.execOne(ctx, "UPDATE users SET capabilities=? WHERE id=?", caps, id)
}

// SetSuspended toggles the soft-disable flag.
func (r *UserRepo) SetSuspended(ctx context.Context, id uint64, suspended bool) error {
	return r.execOne(ctx, "UPDATE users SET is_suspended=? WHERE id=?", suspended, id)
}

// SetDistributer scopes a doctor to a distributer, or clears it when nil.
func (r *UserRepo) SetDistributer(ctx context.Context, doctorID uint64, distributerID *uint64) error {
	return r.execOne(ctx, "UPDATE users SET distributer_id=? WHERE id=? AND role=?",
		nullableID(distributerID), doctorID, string(model.RoleDoctor))
}

// execOne runs an update addressed to a single row. The DSN sets
// clientFoundRows so RowsAffected counts matched rows, not changed ones.
func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
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

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}
