package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/order"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/payment"
)

// OrderStore is the slice of the order store the order handler uses.
type OrderStore interface {
	ListByEmail(ctx context.Context, email string) ([]*order.Order, error)
	ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*order.Order, error)
	Items(ctx context.Context, orderID uuid.UUID) ([]order.Item, error)
	Create(ctx context.Context, o *order.Order) (*order.Order, error)
	UpdatePayment(ctx context.Context, orderID uuid.UUID, paymentKey, paymentID string) error
}

// CustomerDirectory resolves customer identity for order lookups.
type CustomerDirectory interface {
	ResolveIDByEmail(ctx context.Context, email string) (uuid.UUID, error)
}

// PaymentConfirmer verifies a checkout with the payment provider.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*payment.Confirmation, error)
}

// StagedOrders hands out orders parked by the assistant during checkout.
type StagedOrders interface {
	Consume(orderNumber string) (*order.Staged, bool)
}

// StockKeeper decrements catalog stock after a paid order.
type StockKeeper interface {
	DecrementStock(ctx context.Context, id int64, quantity int) (bool, error)
}

// OrderHandler handles order lookup and the payment confirmation callback
// the storefront calls after the payment widget redirects back.
type OrderHandler struct {
	orders    OrderStore
	customers CustomerDirectory
	payments  PaymentConfirmer
	staging   StagedOrders
	stock     StockKeeper
	logger    log.Logger
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(orders OrderStore, customers CustomerDirectory, payments PaymentConfirmer, staging StagedOrders, stock StockKeeper, logger log.Logger) *OrderHandler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &OrderHandler{
		orders:    orders,
		customers: customers,
		payments:  payments,
		staging:   staging,
		stock:     stock,
		logger:    logger,
	}
}

// RegisterRoutes registers order routes on the given mux. The confirmation
// route is only registered when a payment provider is configured.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/orders", h.list)
	if h.payments != nil {
		mux.HandleFunc("POST /api/payments/confirm", h.confirm)
	}
}

// list returns a customer's orders, newest first, with line items attached.
// Orders recorded before the email column existed are found through the
// customer record.
func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	ctx := r.Context()
	orders, err := h.orders.ListByEmail(ctx, email)
	if err != nil {
		h.logger.Error("order lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}

	if len(orders) == 0 {
		customerID, err := h.customers.ResolveIDByEmail(ctx, email)
		if err != nil {
			h.logger.Warn("customer lookup failed", "error", err)
		} else if customerID != uuid.Nil {
			orders, err = h.orders.ListByCustomerID(ctx, customerID)
			if err != nil {
				h.logger.Error("order lookup by customer id failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
				return
			}
		}
	}

	for _, o := range orders {
		items, err := h.orders.Items(ctx, o.ID)
		if err != nil {
			h.logger.Warn("order items lookup failed", "order_id", o.ID, "error", err)
			continue
		}
		o.Items = items
	}

	if orders == nil {
		orders = []*order.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"total":  len(orders),
	})
}

// ConfirmRequest is the payment confirmation callback body, carrying the
// parameters the payment widget appended to the success redirect.
type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// confirm finishes a checkout: it claims the staged order, verifies the
// payment with the provider, and only then writes the order to the database.
func (h *OrderHandler) confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.PaymentKey == "" || req.OrderID == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "paymentKey, orderId and amount are required")
		return
	}

	// Single shot: a replayed or expired confirmation finds nothing.
	staged, ok := h.staging.Consume(req.OrderID)
	if !ok {
		writeError(w, http.StatusNotFound, "order_not_found", "주문 정보를 찾을 수 없어요. 다시 주문해주세요.")
		return
	}
	if staged.TotalAmount != req.Amount {
		h.logger.Warn("amount mismatch on confirmation",
			"order_number", req.OrderID,
			"staged", staged.TotalAmount,
			"claimed", req.Amount)
		writeError(w, http.StatusBadRequest, "amount_mismatch", "결제 금액이 일치하지 않아요.")
		return
	}

	ctx := r.Context()
	conf, err := h.payments.Confirm(ctx, req.PaymentKey, req.OrderID, req.Amount)
	if err != nil {
		var apiErr *payment.APIError
		if errors.As(err, &apiErr) {
			h.logger.Warn("payment rejected",
				"order_number", req.OrderID,
				"code", apiErr.Code)
			writeError(w, http.StatusPaymentRequired, "payment_failed", apiErr.Message)
			return
		}
		h.logger.Error("payment confirmation failed", "order_number", req.OrderID, "error", err)
		writeError(w, http.StatusBadGateway, "payment_unavailable", "결제 확인에 실패했어요. 잠시 후 다시 시도해주세요.")
		return
	}

	customerID, err := h.customers.ResolveIDByEmail(ctx, staged.CustomerEmail)
	if err != nil {
		h.logger.Warn("customer lookup failed", "error", err)
		customerID = uuid.Nil
	}

	created, err := h.orders.Create(ctx, &order.Order{
		OrderNumber:   staged.OrderNumber,
		CustomerID:    customerID,
		CustomerEmail: staged.CustomerEmail,
		CustomerName:  staged.CustomerName,
		TotalAmount:   staged.TotalAmount,
		Status:        order.StatusPending,
		Items:         staged.Items,
	})
	if err != nil {
		// Payment is captured but the order is not on file. Surface loudly.
		h.logger.Error("order creation failed after payment",
			"order_number", staged.OrderNumber,
			"payment_key", conf.PaymentKey,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "주문 저장에 실패했어요. 고객센터로 문의해주세요.")
		return
	}

	if err := h.orders.UpdatePayment(ctx, created.ID, conf.PaymentKey, conf.OrderID); err != nil {
		h.logger.Error("payment status update failed", "order_id", created.ID, "error", err)
	} else {
		created.Status = order.StatusPaid
		created.PaymentKey = conf.PaymentKey
	}

	for _, item := range created.Items {
		ok, err := h.stock.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil || !ok {
			// Oversold between staging and confirmation. The order stands;
			// restocking is an operational followup.
			h.logger.Warn("stock decrement failed",
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order":   created,
		"payment": conf,
	})
}
