// Package catalog manages the product catalog.
//
// Products live in PostgreSQL; a small embedded launch catalog doubles as a
// keyword-search fallback so the storefront keeps answering even when the
// database is unreachable or empty.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

// Product is a single catalog entry. Price is in KRW (no decimals).
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Price       int64    `json:"price"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"image"`
	Stock       int      `json:"stock"`
}

// DB is the subset of pgxpool.Pool the store needs.
// Interfaces are defined by the consumer; *pgxpool.Pool and pgx.Tx both satisfy it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store provides read access to the product catalog.
// Safe for concurrent use.
type Store struct {
	db     DB
	logger log.Logger
}

// New creates a catalog store. pool is usually *pgxpool.Pool; pass nil logger
// to discard debug output.
func New(db DB, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger}
}

var _ DB = (*pgxpool.Pool)(nil)

const productColumns = "id, name, price, description, category, tags, image_url, stock"

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Category, &p.Tags, &p.ImageURL, &p.Stock)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]*Product, error) {
	defer rows.Close()
	var out []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading products: %w", err)
	}
	return out, nil
}

// SearchByKeyword finds active products whose name or description contains
// the keyword (case-insensitive). Name and description matches are merged and
// de-duplicated by id, ordered by id. A blank keyword yields no results.
//
// When the database errors out or returns nothing, the embedded launch
// catalog is searched locally instead, so the assistant still has something
// to show.
func (s *Store) SearchByKeyword(ctx context.Context, keyword string) ([]*Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}

	pattern := "%" + keyword + "%"
	rows, err := s.db.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE is_active AND (name ILIKE $1 OR description ILIKE $1 OR $2 = ANY(tags)) ORDER BY id",
		pattern, keyword)
	if err != nil {
		s.logger.Warn("product search query failed, falling back to embedded catalog",
			"keyword", keyword, "error", err)
		return searchSeed(keyword), nil
	}

	products, err := collectProducts(rows)
	if err != nil {
		s.logger.Warn("product search scan failed, falling back to embedded catalog",
			"keyword", keyword, "error", err)
		return searchSeed(keyword), nil
	}

	if len(products) == 0 {
		return searchSeed(keyword), nil
	}
	return products, nil
}

// GetByID returns the active product with the given id, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE is_active AND id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return p, nil
}

// ListByCategory returns active products in the category, ordered by id.
// Category matching is case-insensitive.
func (s *Store) ListByCategory(ctx context.Context, category string) ([]*Product, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE is_active AND lower(category) = lower($1) ORDER BY id",
		category)
	if err != nil {
		return nil, fmt.Errorf("listing products by category %q: %w", category, err)
	}
	return collectProducts(rows)
}

// ListAll returns every active product, ordered by id.
func (s *Store) ListAll(ctx context.Context) ([]*Product, error) {
	rows, err := s.db.Query(ctx, "SELECT "+productColumns+" FROM products WHERE is_active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return collectProducts(rows)
}

// RandomSample returns up to count active products in random order, optionally
// restricted to a category. Used for recommendations.
func (s *Store) RandomSample(ctx context.Context, count int, category string) ([]*Product, error) {
	if count <= 0 {
		return nil, nil
	}

	var (
		candidates []*Product
		err        error
	)
	if category != "" {
		candidates, err = s.ListByCategory(ctx, category)
	} else {
		candidates, err = s.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	shuffled := make([]*Product, len(candidates))
	copy(shuffled, candidates)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count], nil
}

// DecrementStock atomically reduces stock for a product, failing when the
// remaining stock is insufficient. Returns the rows affected count as a bool.
func (s *Store) DecrementStock(ctx context.Context, id int64, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	tag, err := s.db.Exec(ctx,
		"UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2", id, quantity)
	if err != nil {
		return false, fmt.Errorf("decrementing stock for product %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
