package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/catalog"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/customer"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/order"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/payment"
)

// Result is what every tool call returns to the model. Tool failures are
// data, not errors: a failed lookup becomes {success:false, message:...} so
// the model can apologize or ask a follow-up instead of the turn dying.
type Result struct {
	Success          bool               `json:"success"`
	Message          string             `json:"message"`
	Products         []*catalog.Product `json:"products,omitempty"`
	Product          *catalog.Product   `json:"product,omitempty"`
	Orders           []*order.Order     `json:"orders,omitempty"`
	Count            int                `json:"count,omitempty"`
	OrderNumber      string             `json:"orderNumber,omitempty"`
	TotalPrice       int64              `json:"totalPrice,omitempty"`
	PaymentInitiated bool               `json:"paymentInitiated,omitempty"`
}

func failure(format string, args ...any) *Result {
	return &Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Collaborator interfaces, defined here by the consumer. The concrete stores
// in internal/catalog, internal/customer, internal/order and internal/payment
// satisfy them.

// Catalog reads the product catalog.
type Catalog interface {
	SearchByKeyword(ctx context.Context, keyword string) ([]*catalog.Product, error)
	GetByID(ctx context.Context, id int64) (*catalog.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*catalog.Product, error)
	ListAll(ctx context.Context) ([]*catalog.Product, error)
	RandomSample(ctx context.Context, count int, category string) ([]*catalog.Product, error)
}

// Customers resolves customer identity.
type Customers interface {
	GetByEmail(ctx context.Context, email string) (*customer.Customer, error)
}

// Orders reads order history.
type Orders interface {
	ListByEmail(ctx context.Context, email string) ([]*order.Order, error)
	ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*order.Order, error)
}

// Stager parks orders awaiting payment.
type Stager interface {
	Stage(st *order.Staged)
	Discard(orderNumber string)
}

// Payments starts the checkout flow.
type Payments interface {
	Initiate(ctx context.Context, co *payment.Checkout) error
}

// Executor runs storefront tools on behalf of the model.
// Safe for concurrent use.
type Executor struct {
	catalog   Catalog
	customers Customers
	orders    Orders
	staging   Stager
	payments  Payments

	successURL string
	failURL    string

	logger log.Logger
}

// ExecutorConfig wires the executor's collaborators.
type ExecutorConfig struct {
	Catalog   Catalog
	Customers Customers
	Orders    Orders
	Staging   Stager
	Payments  Payments

	// Redirect targets stamped onto each checkout.
	SuccessURL string
	FailURL    string
}

// NewExecutor creates a tool executor.
func NewExecutor(cfg ExecutorConfig, logger log.Logger) *Executor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Executor{
		catalog:    cfg.Catalog,
		customers:  cfg.Customers,
		orders:     cfg.Orders,
		staging:    cfg.Staging,
		payments:   cfg.Payments,
		successURL: cfg.SuccessURL,
		failURL:    cfg.FailURL,
		logger:     logger,
	}
}

// decodeArgs converts the model's raw argument payload into the tool's typed
// input. Malformed payloads degrade to the zero value; the per-tool
// validation then produces a readable failure instead of aborting the turn.
func decodeArgs[T any](raw any) T {
	var v T
	if raw == nil {
		return v
	}
	if typed, ok := raw.(T); ok {
		return typed
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return v
	}
	_ = json.Unmarshal(data, &v)
	return v
}

// Execute runs one tool call. It never returns an error: every outcome,
// including collaborator failures, is folded into the Result.
func (e *Executor) Execute(ctx context.Context, name string, rawArgs any, sess *Session) *Result {
	if sess == nil {
		sess = NewSession(uuid.Nil)
	}

	var res *Result
	switch name {
	case ToolSearchProducts:
		res = e.searchProducts(ctx, decodeArgs[SearchInput](rawArgs), sess)
	case ToolProductDetails:
		res = e.productDetails(ctx, decodeArgs[DetailsInput](rawArgs))
	case ToolProductsByCategory:
		res = e.productsByCategory(ctx, decodeArgs[CategoryInput](rawArgs), sess)
	case ToolAllProducts:
		res = e.allProducts(ctx, sess)
	case ToolRecommendations:
		res = e.recommendations(ctx, decodeArgs[RecommendInput](rawArgs), sess)
	case ToolCheckStock:
		res = e.checkStock(ctx, decodeArgs[StockInput](rawArgs))
	case ToolOrders:
		res = e.listOrders(ctx, decodeArgs[OrdersInput](rawArgs), sess)
	case ToolCreateOrder:
		res = e.createOrder(ctx, decodeArgs[CreateOrderInput](rawArgs), sess)
	default:
		res = failure("알 수 없는 요청이에요: %s", name)
	}

	e.logger.Debug("tool executed",
		"tool", name,
		"success", res.Success,
		"session_id", sess.ID())
	return res
}

func (e *Executor) searchProducts(ctx context.Context, in SearchInput, sess *Session) *Result {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return failure("검색어를 입력해주세요.")
	}

	products, err := e.catalog.SearchByKeyword(ctx, query)
	if err != nil {
		e.logger.Warn("product search failed", "query", query, "error", err)
		return failure("상품 검색 중 문제가 생겼어요. 잠시 후 다시 시도해주세요.")
	}

	sess.SetLastPresented(products)
	if len(products) == 0 {
		// Empty is still a success; the message tells the model to retry
		// with a different keyword rather than apologize and stop.
		return &Result{
			Success: true,
			Message: fmt.Sprintf("'%s'에 대한 검색 결과가 없어요. 다른 키워드로 다시 검색해보세요.", query),
		}
	}

	return &Result{
		Success:  true,
		Message:  fmt.Sprintf("'%s' 검색 결과 %d개를 찾았어요.", query, len(products)),
		Products: products,
		Count:    len(products),
	}
}

func (e *Executor) productDetails(ctx context.Context, in DetailsInput) *Result {
	if in.ProductID <= 0 {
		return failure("상품 ID를 알려주세요.")
	}

	p, err := e.catalog.GetByID(ctx, in.ProductID)
	if err != nil {
		e.logger.Warn("product lookup failed", "product_id", in.ProductID, "error", err)
		return failure("상품 정보를 가져오지 못했어요. 잠시 후 다시 시도해주세요.")
	}
	if p == nil {
		return failure("상품을 찾을 수 없어요.")
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("%s — %d원. %s", p.Name, p.Price, p.Description),
		Product: p,
	}
}

func (e *Executor) productsByCategory(ctx context.Context, in CategoryInput, sess *Session) *Result {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return failure("카테고리를 알려주세요.")
	}

	products, err := e.catalog.ListByCategory(ctx, category)
	if err != nil {
		e.logger.Warn("category listing failed", "category", category, "error", err)
		return failure("상품 목록을 가져오지 못했어요. 잠시 후 다시 시도해주세요.")
	}

	sess.SetLastPresented(products)
	if len(products) == 0 {
		return &Result{
			Success: true,
			Message: fmt.Sprintf("'%s' 카테고리에는 아직 상품이 없어요.", category),
		}
	}

	return &Result{
		Success:  true,
		Message:  fmt.Sprintf("'%s' 카테고리 상품 %d개를 찾았어요.", category, len(products)),
		Products: products,
		Count:    len(products),
	}
}

func (e *Executor) allProducts(ctx context.Context, sess *Session) *Result {
	products, err := e.catalog.ListAll(ctx)
	if err != nil {
		e.logger.Warn("catalog listing failed", "error", err)
		return failure("상품 목록을 가져오지 못했어요. 잠시 후 다시 시도해주세요.")
	}

	sess.SetLastPresented(products)
	if len(products) == 0 {
		return &Result{Success: true, Message: "등록된 상품이 아직 없어요."}
	}

	return &Result{
		Success:  true,
		Message:  fmt.Sprintf("전체 상품 %d개를 보여드릴게요.", len(products)),
		Products: products,
		Count:    len(products),
	}
}

func (e *Executor) recommendations(ctx context.Context, in RecommendInput, sess *Session) *Result {
	count := in.Count
	if count <= 0 {
		count = 3
	}

	products, err := e.catalog.RandomSample(ctx, count, strings.TrimSpace(in.Category))
	if err != nil {
		e.logger.Warn("recommendation sampling failed", "error", err)
		return failure("추천 상품을 가져오지 못했어요. 잠시 후 다시 시도해주세요.")
	}

	sess.SetLastPresented(products)
	if len(products) == 0 {
		return &Result{Success: true, Message: "추천할 상품이 아직 없어요."}
	}

	return &Result{
		Success:  true,
		Message:  "이런 상품 어떠세요?",
		Products: products,
		Count:    len(products),
	}
}

func (e *Executor) checkStock(ctx context.Context, in StockInput) *Result {
	name := strings.TrimSpace(in.ProductName)
	if name == "" {
		return failure("상품 이름을 알려주세요.")
	}

	matches, err := e.catalog.SearchByKeyword(ctx, name)
	if err != nil {
		e.logger.Warn("stock lookup failed", "product_name", name, "error", err)
		return failure("재고를 확인하지 못했어요. 잠시 후 다시 시도해주세요.")
	}
	if len(matches) == 0 {
		return failure("'%s' 상품을 찾을 수 없어요.", name)
	}

	// First match wins; the customer usually types a unique enough name.
	p := matches[0]
	if p.Stock <= 0 {
		return &Result{Success: true, Message: fmt.Sprintf("%s: 품절이에요.", p.Name), Product: p}
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("%s: 재고 %d개 남아있어요.", p.Name, p.Stock),
		Product: p,
	}
}

func (e *Executor) listOrders(ctx context.Context, in OrdersInput, sess *Session) *Result {
	// Argument beats session; a customer may ask about a different email.
	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = sess.Email()
	} else {
		sess.Identify(email)
	}
	if email == "" {
		// Fail closed: never guess whose orders to show.
		return failure("주문 조회를 위해 이메일을 알려주세요.")
	}

	orders, err := e.orders.ListByEmail(ctx, email)
	if err != nil {
		e.logger.Warn("order lookup failed", "error", err)
		return failure("주문 내역을 가져오지 못했어요. 잠시 후 다시 시도해주세요.")
	}

	// Orders from before the email column was added only carry customer_id.
	if len(orders) == 0 {
		c, err := e.customers.GetByEmail(ctx, email)
		if err != nil {
			e.logger.Warn("customer lookup failed", "error", err)
		} else if c != nil {
			orders, err = e.orders.ListByCustomerID(ctx, c.ID)
			if err != nil {
				e.logger.Warn("order lookup by customer id failed", "error", err)
				return failure("주문 내역을 가져오지 못했어요. 잠시 후 다시 시도해주세요.")
			}
		}
	}

	if len(orders) == 0 {
		return &Result{Success: true, Message: "주문 내역이 없어요."}
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("주문 내역 %d건을 찾았어요.", len(orders)),
		Orders:  orders,
		Count:   len(orders),
	}
}

func (e *Executor) createOrder(ctx context.Context, in CreateOrderInput, sess *Session) *Result {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = sess.Email()
	} else {
		sess.Identify(email)
	}
	if email == "" {
		return failure("주문하려면 이메일이 필요해요. 이메일을 알려주세요.")
	}

	// The registered customer's name wins; a first-time shopper has to give
	// one. Never invent identity data for the payment gateway.
	var name string
	c, err := e.customers.GetByEmail(ctx, email)
	if err != nil {
		e.logger.Warn("customer lookup failed", "error", err)
	} else if c != nil {
		name = c.Name
	}
	if name == "" {
		name = strings.TrimSpace(in.CustomerName)
	}
	if name == "" {
		return failure("이름을 알려주세요.")
	}

	if in.ProductID <= 0 {
		return failure("주문할 상품 ID를 알려주세요.")
	}
	if in.Quantity <= 0 {
		return failure("수량은 1개 이상이어야 해요.")
	}

	p, err := e.catalog.GetByID(ctx, in.ProductID)
	if err != nil {
		e.logger.Warn("product lookup failed", "product_id", in.ProductID, "error", err)
		return failure("상품 정보를 가져오지 못했어요. 잠시 후 다시 시도해주세요.")
	}
	if p == nil {
		return failure("상품을 찾을 수 없어요.")
	}

	if p.Stock < in.Quantity {
		// No staging, no payment: the stock count in the message lets the
		// model suggest a smaller quantity.
		return failure("재고가 부족해요 (현재 재고: %d개)", p.Stock)
	}

	if e.payments == nil {
		return failure("지금은 결제를 진행할 수 없어요. 잠시 후 다시 시도해주세요.")
	}

	total := p.Price * int64(in.Quantity)
	orderNumber := order.NewOrderNumber()

	// Stage first: the confirm endpoint needs the order on file before the
	// widget redirects back.
	e.staging.Stage(&order.Staged{
		OrderNumber:   orderNumber,
		CustomerEmail: email,
		CustomerName:  name,
		TotalAmount:   total,
		Items: []order.Item{{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    in.Quantity,
			UnitPrice:   p.Price,
		}},
	})

	orderName := p.Name
	if in.Quantity > 1 {
		orderName = fmt.Sprintf("%s 외 %d개", p.Name, in.Quantity-1)
	}

	err = e.payments.Initiate(ctx, &payment.Checkout{
		Amount:        total,
		OrderID:       orderNumber,
		OrderName:     orderName,
		CustomerName:  name,
		CustomerEmail: email,
		SuccessURL:    e.successURL,
		FailURL:       e.failURL,
	})
	if err != nil {
		e.staging.Discard(orderNumber)
		e.logger.Warn("payment initiation failed", "order_number", orderNumber, "error", err)
		return failure("결제가 취소되었습니다.")
	}

	return &Result{
		Success:          true,
		Message:          fmt.Sprintf("결제 창이 열렸습니다. %s %d개, 총 %d원이에요. 결제를 완료해주세요!", p.Name, in.Quantity, total),
		OrderNumber:      orderNumber,
		TotalPrice:       total,
		PaymentInitiated: true,
	}
}
