package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/marketplace-api/internal/utils"
)

// User mirrors the 'users' table. The password hash never leaves the API.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Address      string    `json:"address"`
	PhoneNumber  string    `json:"phone_number"`
	LogoPath     string    `json:"logo_path"`
	IsBanned     bool      `json:"is_banned"`
	IsSuper      bool      `json:"is_super"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSummary is the public projection embedded in chat listings. Only
// these three fields may ever be exposed for a chat counterpart.
type UserSummary struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	LogoPath string `json:"logo_path"`
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,name,email,password_hash,address,phone_number,logo_path,is_banned,is_super,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Address, &u.PhoneNumber,
		&u.LogoPath, &u.IsBanned, &u.IsSuper, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create hashes the password and inserts the user, populating u.ID and the
// timestamp fields on success. Duplicate email/phone surface as
// ErrEmailExists / ErrPhoneExists.
func (r *UserRepo) Create(ctx context.Context, u *User, password string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, address, phone_number, logo_path) VALUES (?,?,?,?,?,?)",
		u.Name, u.Email, hash, u.Address, u.PhoneNumber, u.LogoPath)
	if err != nil {
		switch {
		case isDuplicate(err, "uq_users_email"):
			return ErrEmailExists
		case isDuplicate(err, "uq_users_phone"):
			return ErrPhoneExists
		case isDuplicate(err, ""):
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.PasswordHash = hash

	// Follow-up SELECT to populate DB-side defaults (timestamps, flags).
	created, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = *created
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]*User, error) {
	return r.list(ctx, "SELECT "+userCols+" FROM users ORDER BY id")
}

// ListExcept returns all users except the given one; used by the admin
// listing so an administrator never sees themselves in the ban table.
func (r *UserRepo) ListExcept(ctx context.Context, id uint64) ([]*User, error) {
	return r.list(ctx, "SELECT "+userCols+" FROM users WHERE id<>? ORDER BY id", id)
}

func (r *UserRepo) list(ctx context.Context, q string, args ...any) ([]*User, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile writes the allow-listed profile fields only. Anything else
// in an update request body is ignored by design.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, address string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, address=? WHERE id=?", name, address, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Could also be a no-op update; confirm the row exists.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateLogoPath stores the avatar location for a user.
func (r *UserRepo) UpdateLogoPath(ctx context.Context, id uint64, path string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET logo_path=? WHERE id=?", path, id)
	return err
}

// SetBanned toggles the ban flag.
func (r *UserRepo) SetBanned(ctx context.Context, id uint64, banned bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_banned=? WHERE id=?", banned, id)
	return err
}

// SetSuper sets the superuser flag.
func (r *UserRepo) SetSuper(ctx context.Context, id uint64, super bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_super=? WHERE id=?", super, id)
	return err
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
