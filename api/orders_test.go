package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/order"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/payment"
)

type stubOrderStore struct {
	byEmail map[string][]*order.Order
	byID    map[uuid.UUID][]*order.Order

	created        []*order.Order
	paymentUpdates []uuid.UUID
}

func (s *stubOrderStore) ListByEmail(_ context.Context, email string) ([]*order.Order, error) {
	return s.byEmail[email], nil
}

func (s *stubOrderStore) ListByCustomerID(_ context.Context, id uuid.UUID) ([]*order.Order, error) {
	return s.byID[id], nil
}

func (s *stubOrderStore) Items(context.Context, uuid.UUID) ([]order.Item, error) {
	return nil, nil
}

func (s *stubOrderStore) Create(_ context.Context, o *order.Order) (*order.Order, error) {
	o.ID = uuid.New()
	s.created = append(s.created, o)
	return o, nil
}

func (s *stubOrderStore) UpdatePayment(_ context.Context, orderID uuid.UUID, _, _ string) error {
	s.paymentUpdates = append(s.paymentUpdates, orderID)
	return nil
}

type stubDirectory struct {
	ids map[string]uuid.UUID
}

func (s *stubDirectory) ResolveIDByEmail(_ context.Context, email string) (uuid.UUID, error) {
	return s.ids[email], nil
}

type stubConfirmer struct {
	err       error
	confirmed []string
}

func (s *stubConfirmer) Confirm(_ context.Context, paymentKey, orderID string, amount int64) (*payment.Confirmation, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.confirmed = append(s.confirmed, orderID)
	return &payment.Confirmation{
		PaymentKey:  paymentKey,
		OrderID:     orderID,
		Status:      "DONE",
		TotalAmount: amount,
	}, nil
}

type stubStock struct {
	decremented map[int64]int
}

func (s *stubStock) DecrementStock(_ context.Context, id int64, quantity int) (bool, error) {
	if s.decremented == nil {
		s.decremented = map[int64]int{}
	}
	s.decremented[id] += quantity
	return true, nil
}

type orderFixture struct {
	mux       *http.ServeMux
	orders    *stubOrderStore
	confirmer *stubConfirmer
	staging   *order.Staging
	stock     *stubStock
}

func newOrderFixture() *orderFixture {
	legacyID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	fx := &orderFixture{
		orders: &stubOrderStore{
			byEmail: map[string][]*order.Order{
				"hana@example.com": {{OrderNumber: "order_1"}},
			},
			byID: map[uuid.UUID][]*order.Order{
				legacyID: {{OrderNumber: "order_legacy"}},
			},
		},
		confirmer: &stubConfirmer{},
		staging:   order.NewStaging(time.Minute),
		stock:     &stubStock{},
	}

	fx.mux = http.NewServeMux()
	NewOrderHandler(fx.orders,
		&stubDirectory{ids: map[string]uuid.UUID{"legacy@example.com": legacyID}},
		fx.confirmer, fx.staging, fx.stock, log.NewNop(),
	).RegisterRoutes(fx.mux)
	return fx
}

func stageTestOrder(fx *orderFixture) *order.Staged {
	st := &order.Staged{
		OrderNumber:   "order_42",
		CustomerEmail: "hana@example.com",
		CustomerName:  "하나",
		TotalAmount:   24000,
		Items: []order.Item{
			{ProductID: 1, ProductName: "시그니처 플래너", Quantity: 2, UnitPrice: 12000},
		},
	}
	fx.staging.Stage(st)
	return st
}

func confirmBody(t *testing.T, req ConfirmRequest) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestOrderHandler_List(t *testing.T) {
	fx := newOrderFixture()

	t.Run("by email", func(t *testing.T) {
		w := httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders?email=hana@example.com", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Orders []*order.Order `json:"orders"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Orders, 1)
		assert.Equal(t, "order_1", resp.Orders[0].OrderNumber)
	})

	t.Run("falls back to customer id", func(t *testing.T) {
		w := httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders?email=legacy@example.com", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Orders []*order.Order `json:"orders"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Orders, 1)
		assert.Equal(t, "order_legacy", resp.Orders[0].OrderNumber)
	})

	t.Run("email required", func(t *testing.T) {
		w := httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_Confirm(t *testing.T) {
	t.Run("happy path persists order and decrements stock", func(t *testing.T) {
		fx := newOrderFixture()
		stageTestOrder(fx)

		w := httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payments/confirm",
			confirmBody(t, ConfirmRequest{PaymentKey: "pk_123", OrderID: "order_42", Amount: 24000})))

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, fx.orders.created, 1)
		created := fx.orders.created[0]
		assert.Equal(t, "order_42", created.OrderNumber)
		assert.Equal(t, "hana@example.com", created.CustomerEmail)
		require.Len(t, fx.orders.paymentUpdates, 1)
		assert.Equal(t, 2, fx.stock.decremented[1])
		assert.Zero(t, fx.staging.Len(), "staged order is consumed")
	})

	t.Run("unknown or expired order", func(t *testing.T) {
		fx := newOrderFixture()

		w := httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payments/confirm",
			confirmBody(t, ConfirmRequest{PaymentKey: "pk_123", OrderID: "order_missing", Amount: 100})))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, fx.confirmer.confirmed, "provider is never called without a staged order")
	})

	t.Run("replay is rejected", func(t *testing.T) {
		fx := newOrderFixture()
		stageTestOrder(fx)
		body := ConfirmRequest{PaymentKey: "pk_123", OrderID: "order_42", Amount: 24000}

		w := httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payments/confirm", confirmBody(t, body)))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payments/confirm", confirmBody(t, body)))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		fx := newOrderFixture()
		stageTestOrder(fx)

		w := httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payments/confirm",
			confirmBody(t, ConfirmRequest{PaymentKey: "pk_123", OrderID: "order_42", Amount: 100})))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, fx.confirmer.confirmed)
		assert.Empty(t, fx.orders.created)
	})

	t.Run("provider rejection", func(t *testing.T) {
		fx := newOrderFixture()
		stageTestOrder(fx)
		fx.confirmer.err = &payment.APIError{
			StatusCode: http.StatusBadRequest,
			Code:       "REJECT_CARD_PAYMENT",
			Message:    "한도를 초과했습니다.",
		}

		w := httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payments/confirm",
			confirmBody(t, ConfirmRequest{PaymentKey: "pk_123", OrderID: "order_42", Amount: 24000})))

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		assert.Empty(t, fx.orders.created)
	})

	t.Run("missing fields", func(t *testing.T) {
		fx := newOrderFixture()

		w := httptest.NewRecorder()
		fx.mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payments/confirm",
			confirmBody(t, ConfirmRequest{})))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
