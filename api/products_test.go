package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/catalog"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

type stubCatalog struct {
	products []*catalog.Product
}

func (s *stubCatalog) ListAll(context.Context) ([]*catalog.Product, error) {
	return s.products, nil
}

func (s *stubCatalog) GetByID(_ context.Context, id int64) (*catalog.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (s *stubCatalog) ListByCategory(_ context.Context, category string) ([]*catalog.Product, error) {
	var out []*catalog.Product
	for _, p := range s.products {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCatalog) SearchByKeyword(_ context.Context, keyword string) ([]*catalog.Product, error) {
	var out []*catalog.Product
	for _, p := range s.products {
		if strings.Contains(p.Name, keyword) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCatalog) RandomSample(_ context.Context, count int, _ string) ([]*catalog.Product, error) {
	if count > len(s.products) {
		count = len(s.products)
	}
	return s.products[:count], nil
}

func newProductMux() *http.ServeMux {
	mux := http.NewServeMux()
	h := NewProductHandler(&stubCatalog{products: []*catalog.Product{
		{ID: 1, Name: "시그니처 플래너", Price: 12000, Category: "Stationery"},
		{ID: 2, Name: "스터디용 타이머", Price: 9900, Category: "Tech"},
	}}, log.NewNop())
	h.RegisterRoutes(mux)
	return mux
}

func TestProductHandler_List(t *testing.T) {
	mux := newProductMux()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Products []*catalog.Product `json:"products"`
		Total    int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
}

func TestProductHandler_ListByQuery(t *testing.T) {
	mux := newProductMux()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products?q=%ED%83%80%EC%9D%B4%EB%A8%B8", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Products []*catalog.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, int64(2), resp.Products[0].ID)
}

func TestProductHandler_Get(t *testing.T) {
	mux := newProductMux()

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/1", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var p catalog.Product
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, "시그니처 플래너", p.Name)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/999", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProductHandler_Recommendations(t *testing.T) {
	mux := newProductMux()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recommendations?count=1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Products []*catalog.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 1)
}
