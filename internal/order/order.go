// Package order manages orders: persisted order records, line items, and the
// short-lived staging area that bridges order creation and payment approval.
package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Order statuses.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// Order is a persisted order record.
type Order struct {
	ID            uuid.UUID `json:"id"`
	OrderNumber   string    `json:"orderNumber"`
	CustomerID    uuid.UUID `json:"customerId,omitzero"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerName  string    `json:"customerName"`
	TotalAmount   int64     `json:"totalAmount"`
	Status        string    `json:"status"`
	PaymentKey    string    `json:"paymentKey,omitempty"`
	PaymentID     string    `json:"paymentId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Items         []Item    `json:"items,omitempty"`
}

// Item is a single order line.
type Item struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
}

// NewOrderNumber generates a storefront order number. The shape
// (order_<millis>_<short-uuid>) keeps numbers sortable by creation time while
// staying unique under concurrent checkouts.
func NewOrderNumber() string {
	short := uuid.NewString()[:8]
	return fmt.Sprintf("order_%d_%s", time.Now().UnixMilli(), short)
}
