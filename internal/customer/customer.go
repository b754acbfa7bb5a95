// Package customer provides customer identity lookup.
package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

// Customer is a registered shopper.
type Customer struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store looks customers up by email.
type Store struct {
	db     DB
	logger log.Logger
}

// New creates a customer store.
func New(db DB, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// GetByEmail returns the customer with the given email, or nil when no
// customer is registered under it. Email matching is case-insensitive.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	var c Customer
	err := s.db.QueryRow(ctx,
		"SELECT id, email, name FROM customers WHERE lower(email) = lower($1)", email).
		Scan(&c.ID, &c.Email, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting customer by email: %w", err)
	}
	return &c, nil
}

// ResolveIDByEmail returns the customer id for an email, or uuid.Nil when the
// email is unknown. Used as the fallback key for order lookups.
func (s *Store) ResolveIDByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	c, err := s.GetByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	if c == nil {
		return uuid.Nil, nil
	}
	return c.ID, nil
}
