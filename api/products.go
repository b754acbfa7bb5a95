package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/catalog"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

// MaxRecommendationCount caps one recommendation request.
const MaxRecommendationCount = 20

// Catalog is the slice of the product store the product handler uses.
type Catalog interface {
	ListAll(ctx context.Context) ([]*catalog.Product, error)
	GetByID(ctx context.Context, id int64) (*catalog.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*catalog.Product, error)
	SearchByKeyword(ctx context.Context, keyword string) ([]*catalog.Product, error)
	RandomSample(ctx context.Context, count int, category string) ([]*catalog.Product, error)
}

// ProductHandler handles catalog endpoints.
type ProductHandler struct {
	catalog Catalog
	logger  log.Logger
}

// NewProductHandler creates a product handler.
func NewProductHandler(c Catalog, logger log.Logger) *ProductHandler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &ProductHandler{catalog: c, logger: logger}
}

// RegisterRoutes registers catalog routes on the given mux.
func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.list)
	mux.HandleFunc("GET /api/products/{id}", h.get)
	mux.HandleFunc("GET /api/recommendations", h.recommendations)
}

// list serves the whole catalog; ?q= narrows by keyword, ?category= by
// category. When both are present the keyword wins.
func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		products []*catalog.Product
		err      error
	)
	switch {
	case strings.TrimSpace(r.URL.Query().Get("q")) != "":
		products, err = h.catalog.SearchByKeyword(ctx, strings.TrimSpace(r.URL.Query().Get("q")))
	case strings.TrimSpace(r.URL.Query().Get("category")) != "":
		products, err = h.catalog.ListByCategory(ctx, strings.TrimSpace(r.URL.Query().Get("category")))
	default:
		products, err = h.catalog.ListAll(ctx)
	}
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}

	if products == nil {
		products = []*catalog.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    len(products),
	})
}

func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid product id")
		return
	}

	p, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "product_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get product")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product_not_found", "unknown product")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) recommendations(w http.ResponseWriter, r *http.Request) {
	count := parseIntParam(r, "count", 3, 1, MaxRecommendationCount)
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	products, err := h.catalog.RandomSample(r.Context(), count, category)
	if err != nil {
		h.logger.Error("failed to sample recommendations", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get recommendations")
		return
	}

	if products == nil {
		products = []*catalog.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    len(products),
	})
}
