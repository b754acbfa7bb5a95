// Package cart implements the per-user shopping cart backing the
// storefront's cart widget.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

// ErrNotFound is returned when a cart line does not exist.
var ErrNotFound = errors.New("cart item not found")

// Item is one cart line joined with its product.
type Item struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`

	// Joined from the catalog so the widget renders without extra lookups.
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"unitPrice"`
	ImageURL    string `json:"image"`
	Stock       int    `json:"stock"`
}

// Store manages cart persistence.
// Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a cart store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Items lists a user's cart, newest line first.
func (s *Store) Items(ctx context.Context, userID string) ([]*Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at,
		        p.name, p.price, p.image_url, p.stock
		 FROM cart_items c
		 JOIN products p ON p.id = c.product_id
		 WHERE c.user_id = $1
		 ORDER BY c.created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it := &Item{}
		if err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt,
			&it.ProductName, &it.UnitPrice, &it.ImageURL, &it.Stock); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Add puts quantity of a product into the cart. Adding a product that is
// already in the cart increments its quantity instead of creating a second
// line.
func (s *Store) Add(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}

	s.logger.Debug("cart item added",
		"user_id", userID,
		"product_id", productID,
		"quantity", quantity)
	return nil
}

// UpdateQuantity sets a cart line's quantity. Zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, userID, productID)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3
		 WHERE user_id = $1 AND product_id = $2`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes one product from the cart.
func (s *Store) Remove(ctx context.Context, userID string, productID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear empties the user's cart, typically after a completed checkout.
func (s *Store) Clear(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.logger.Debug("cart cleared", "user_id", userID)
	return nil
}
