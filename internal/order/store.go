package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

// Store persists orders in PostgreSQL.
// Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates an order store.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

const orderColumns = "id, order_number, COALESCE(customer_id, '00000000-0000-0000-0000-000000000000'), customer_email, customer_name, total_amount, status, payment_key, payment_id, created_at"

func collectOrders(rows pgx.Rows) ([]*Order, error) {
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		var o Order
		err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerEmail, &o.CustomerName,
			&o.TotalAmount, &o.Status, &o.PaymentKey, &o.PaymentID, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading orders: %w", err)
	}
	return out, nil
}

// ListByEmail returns orders recorded under the email, newest first.
func (s *Store) ListByEmail(ctx context.Context, email string) ([]*Order, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE lower(customer_email) = lower($1) ORDER BY created_at DESC",
		email)
	if err != nil {
		return nil, fmt.Errorf("listing orders by email: %w", err)
	}
	return collectOrders(rows)
}

// ListByCustomerID returns orders keyed by the customer id, newest first.
// Older orders predate the customer_email column, so lookups fall back to
// this when the email query comes back empty.
func (s *Store) ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*Order, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE customer_id = $1 ORDER BY created_at DESC",
		customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders by customer id: %w", err)
	}
	return collectOrders(rows)
}

// GetByNumber returns the order with the given order number, or nil.
func (s *Store) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE order_number = $1", orderNumber).
		Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerEmail, &o.CustomerName,
			&o.TotalAmount, &o.Status, &o.PaymentKey, &o.PaymentID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order %s: %w", orderNumber, err)
	}
	return &o, nil
}

// Items returns the line items for an order.
func (s *Store) Items(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT product_id, product_name, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY product_id",
		orderID)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading order items: %w", err)
	}
	return items, nil
}

// Create persists an order and its line items in one transaction. A failed
// item insert rolls the whole order back; payment approval must never leave a
// headless order behind.
func (s *Store) Create(ctx context.Context, o *Order) (*Order, error) {
	if len(o.Items) == 0 {
		return nil, errors.New("order has no items")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Warn("rolling back order transaction", "error", err)
		}
	}()

	var customerID any
	if o.CustomerID != uuid.Nil {
		customerID = o.CustomerID
	}

	created := *o
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (order_number, customer_id, customer_email, customer_name, total_amount, status, payment_key, payment_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		o.OrderNumber, customerID, o.CustomerEmail, o.CustomerName,
		o.TotalAmount, o.Status, o.PaymentKey, o.PaymentID).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting order: %w", err)
	}

	for _, it := range o.Items {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5)`,
			created.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("inserting order item %d: %w", it.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing order: %w", err)
	}

	s.logger.Info("order created",
		"order_number", created.OrderNumber,
		"total_amount", created.TotalAmount,
		"items", len(created.Items))
	return &created, nil
}

// UpdatePayment records the payment key and flips the order to paid.
func (s *Store) UpdatePayment(ctx context.Context, orderID uuid.UUID, paymentKey, paymentID string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE orders SET status = $2, payment_key = $3, payment_id = $4, updated_at = now() WHERE id = $1",
		orderID, StatusPaid, paymentKey, paymentID)
	if err != nil {
		return fmt.Errorf("updating order payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s not found", orderID)
	}
	return nil
}
