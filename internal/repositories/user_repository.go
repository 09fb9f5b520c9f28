package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "stayhub/internal/config"
	"stayhub/internal/domain"
	"stayhub/internal/domain/models"
)

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// GetByLogin resolves a user by email or username, returning the stored
// password hash alongside the profile.
func (r UserRepository) GetByLogin(login string) (models.User, string, error) {
	var (
		u    models.User
		hash string
	)
	err := r.db().QueryRow(`
		SELECT id, COALESCE(name,''), COALESCE(username,''), COALESCE(email,''), COALESCE(phone,''), password_hash, COALESCE(role,''), COALESCE(status,'')
		FROM users
		WHERE email=? OR username=?
		LIMIT 1`, login, login).
		Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &hash, &u.Role, &u.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, "", domain.NotFoundError{Resource: "user"}
	}
	return u, hash, err
}

// Exists reports whether email or username is already registered.
func (r UserRepository) Exists(email, username string) (bool, error) {
	var count int
	err := r.db().QueryRow(`SELECT COUNT(*) FROM users WHERE email=? OR username=?`, email, username).Scan(&count)
	return count > 0, err
}

// Create registers a new user and returns its id.
func (r UserRepository) Create(u models.User, passwordHash string) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db().Exec(`
		INSERT INTO users (name, username, email, phone, password_hash, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'active', ?, ?)`,
		u.Name, u.Username, u.Email, u.Phone, passwordHash, u.Role, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
