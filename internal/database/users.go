package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kasir/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- User Functions ---

// CreateUser hashes password and inserts the user, assigning an ID when empty.
func (s *SQLDatabase) CreateUser(ctx context.Context, user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.PasswordHash = string(hash)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Name, user.Email, user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail looks a user up by email, ignoring case.
func (s *SQLDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// CheckPasswordHash compares a plaintext password with its bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// --- Store Functions ---

// CreateStore inserts the store and sets its ID.
func (s *SQLDatabase) CreateStore(ctx context.Context, st *models.Store) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO stores (user_id, name, address, contact) VALUES ($1, $2, $3, $4) RETURNING id`,
		st.UserID, st.Name, st.Address, st.Contact,
	).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("failed to insert store: %w", err)
	}
	return nil
}

// GetStoreByUserID returns the store owned by the user.
func (s *SQLDatabase) GetStoreByUserID(ctx context.Context, userID string) (*models.Store, error) {
	var st models.Store
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, address, contact FROM stores WHERE user_id = $1 ORDER BY id LIMIT 1`,
		userID,
	).Scan(&st.ID, &st.UserID, &st.Name, &st.Address, &st.Contact)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store of user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return &st, nil
}
