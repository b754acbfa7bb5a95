package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/catalog"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/customer"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/order"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/payment"
)

// fakeCatalog serves a fixed product slice.
type fakeCatalog struct {
	products  []*catalog.Product
	searchErr error
}

func (f *fakeCatalog) SearchByKeyword(_ context.Context, keyword string) ([]*catalog.Product, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	kw := strings.ToLower(strings.TrimSpace(keyword))
	var out []*catalog.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), kw) ||
			strings.Contains(strings.ToLower(p.Description), kw) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id int64) (*catalog.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) ListByCategory(_ context.Context, category string) ([]*catalog.Product, error) {
	var out []*catalog.Product
	for _, p := range f.products {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListAll(_ context.Context) ([]*catalog.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) RandomSample(_ context.Context, count int, category string) ([]*catalog.Product, error) {
	candidates := f.products
	if category != "" {
		candidates, _ = f.ListByCategory(context.Background(), category)
	}
	if count > len(candidates) {
		count = len(candidates)
	}
	return candidates[:count], nil
}

type fakeCustomers struct {
	byEmail map[string]*customer.Customer
}

func (f *fakeCustomers) GetByEmail(_ context.Context, email string) (*customer.Customer, error) {
	return f.byEmail[strings.ToLower(email)], nil
}

type fakeOrders struct {
	byEmail map[string][]*order.Order
	byID    map[uuid.UUID][]*order.Order
}

func (f *fakeOrders) ListByEmail(_ context.Context, email string) ([]*order.Order, error) {
	return f.byEmail[strings.ToLower(email)], nil
}

func (f *fakeOrders) ListByCustomerID(_ context.Context, id uuid.UUID) ([]*order.Order, error) {
	return f.byID[id], nil
}

type fakePayments struct {
	err       error
	checkouts []*payment.Checkout
}

func (f *fakePayments) Initiate(_ context.Context, co *payment.Checkout) error {
	if f.err != nil {
		return f.err
	}
	f.checkouts = append(f.checkouts, co)
	return nil
}

var testProducts = []*catalog.Product{
	{ID: 1, Name: "시그니처 플래너", Price: 12000, Description: "데일리 플래너", Category: "Stationery", Stock: 25},
	{ID: 2, Name: "스터디용 타이머", Price: 9900, Description: "뽀모도로 집중 타이머", Category: "Tech", Stock: 3},
	{ID: 3, Name: "계획 습관 포스터", Price: 8500, Description: "습관 트래커", Category: "Living", Stock: 0},
}

type executorFixture struct {
	exec     *Executor
	payments *fakePayments
	staging  *order.Staging
	sess     *Session
}

func newExecutorFixture(t *testing.T) *executorFixture {
	t.Helper()

	payments := &fakePayments{}
	staging := order.NewStaging(time.Minute)
	regularID := uuid.New()

	exec := NewExecutor(ExecutorConfig{
		Catalog: &fakeCatalog{products: testProducts},
		Customers: &fakeCustomers{byEmail: map[string]*customer.Customer{
			"hana@example.com": {ID: regularID, Email: "hana@example.com", Name: "하나"},
			"legacy@example.com": {
				ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Email: "legacy@example.com",
			},
		}},
		Orders: &fakeOrders{
			byEmail: map[string][]*order.Order{
				"hana@example.com": {{OrderNumber: "order_1", TotalAmount: 12000}},
			},
			byID: map[uuid.UUID][]*order.Order{
				uuid.MustParse("11111111-1111-1111-1111-111111111111"): {{OrderNumber: "order_legacy"}},
			},
		},
		Staging:    staging,
		Payments:   payments,
		SuccessURL: "http://localhost/success",
		FailURL:    "http://localhost/fail",
	}, log.NewNop())

	return &executorFixture{
		exec:     exec,
		payments: payments,
		staging:  staging,
		sess:     NewSession(uuid.New()),
	}
}

func TestExecuteSearchProducts(t *testing.T) {
	t.Parallel()
	fx := newExecutorFixture(t)
	ctx := context.Background()

	t.Run("blank query fails", func(t *testing.T) {
		res := fx.exec.Execute(ctx, ToolSearchProducts, SearchInput{Query: "  "}, fx.sess)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Message)
	})

	t.Run("results remembered for ordinal references", func(t *testing.T) {
		res := fx.exec.Execute(ctx, ToolSearchProducts, SearchInput{Query: "플래너"}, fx.sess)
		require.True(t, res.Success)
		require.Len(t, res.Products, 1)
		assert.Equal(t, 1, res.Count)

		remembered := fx.sess.LastPresented()
		require.Len(t, remembered, 1)
		assert.Equal(t, int64(1), remembered[0].ID)
	})

	t.Run("empty result is a success with guidance", func(t *testing.T) {
		res := fx.exec.Execute(ctx, ToolSearchProducts, SearchInput{Query: "노트북"}, fx.sess)
		assert.True(t, res.Success)
		assert.NotEmpty(t, res.Message, "model needs text to react to")
		assert.Empty(t, res.Products)
		assert.Empty(t, fx.sess.LastPresented(), "empty listing overwrites the previous one")
	})

	t.Run("collaborator error soft-fails", func(t *testing.T) {
		broken := NewExecutor(ExecutorConfig{
			Catalog: &fakeCatalog{searchErr: errors.New("db down")},
		}, log.NewNop())
		res := broken.Execute(ctx, ToolSearchProducts, SearchInput{Query: "플래너"}, fx.sess)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Message)
	})
}

func TestExecuteMalformedArgsDegradeToZeroValues(t *testing.T) {
	t.Parallel()
	fx := newExecutorFixture(t)

	// A payload with the wrong shape must not abort the turn; the blank
	// query produced by degradation fails with the normal validation message.
	res := fx.exec.Execute(context.Background(), ToolSearchProducts,
		map[string]any{"query": []int{1, 2, 3}}, fx.sess)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "검색어")
}

func TestExecuteProductDetails(t *testing.T) {
	t.Parallel()
	fx := newExecutorFixture(t)
	ctx := context.Background()

	res := fx.exec.Execute(ctx, ToolProductDetails, DetailsInput{ProductID: 2}, fx.sess)
	require.True(t, res.Success)
	require.NotNil(t, res.Product)
	assert.Equal(t, "스터디용 타이머", res.Product.Name)

	res = fx.exec.Execute(ctx, ToolProductDetails, DetailsInput{ProductID: 999}, fx.sess)
	assert.False(t, res.Success)

	res = fx.exec.Execute(ctx, ToolProductDetails, DetailsInput{}, fx.sess)
	assert.False(t, res.Success, "missing id must fail, not list arbitrary products")
}

func TestExecuteProductsByCategory(t *testing.T) {
	t.Parallel()
	fx := newExecutorFixture(t)
	ctx := context.Background()

	res := fx.exec.Execute(ctx, ToolProductsByCategory, CategoryInput{Category: "Tech"}, fx.sess)
	require.True(t, res.Success)
	require.Len(t, res.Products, 1)
	assert.Equal(t, int64(2), fx.sess.LastPresented()[0].ID)

	res = fx.exec.Execute(ctx, ToolProductsByCategory, CategoryInput{}, fx.sess)
	assert.False(t, res.Success)

	res = fx.exec.Execute(ctx, ToolProductsByCategory, CategoryInput{Category: "Beauty"}, fx.sess)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Message)
}

func TestExecuteAllProductsAndRecommendations(t *testing.T) {
	t.Parallel()
	fx := newExecutorFixture(t)
	ctx := context.Background()

	res := fx.exec.Execute(ctx, ToolAllProducts, AllProductsInput{}, fx.sess)
	require.True(t, res.Success)
	assert.Len(t, res.Products, 3)
	assert.Len(t, fx.sess.LastPresented(), 3)

	res = fx.exec.Execute(ctx, ToolRecommendations, RecommendInput{}, fx.sess)
	require.True(t, res.Success)
	assert.Len(t, res.Products, 3, "default recommendation count is 3")

	res = fx.exec.Execute(ctx, ToolRecommendations, RecommendInput{Count: 1}, fx.sess)
	require.True(t, res.Success)
	assert.Len(t, res.Products, 1)
	assert.Len(t, fx.sess.LastPresented(), 1, "recommendations also overwrite the listing")
}

func TestExecuteCheckStock(t *testing.T) {
	t.Parallel()
	fx := newExecutorFixture(t)
	ctx := context.Background()

	res := fx.exec.Execute(ctx, ToolCheckStock, StockInput{ProductName: "타이머"}, fx.sess)
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "3개")

	res = fx.exec.Execute(ctx, ToolCheckStock, StockInput{ProductName: "포스터"}, fx.sess)
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "품절")

	res = fx.exec.Execute(ctx, ToolCheckStock, StockInput{}, fx.sess)
	assert.False(t, res.Success)

	res = fx.exec.Execute(ctx, ToolCheckStock, StockInput{ProductName: "노트북"}, fx.sess)
	assert.False(t, res.Success)
}

func TestExecuteGetOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no email fails closed", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolOrders, OrdersInput{}, fx.sess)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "이메일")
	})

	t.Run("argument email wins and identifies the session", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolOrders, OrdersInput{Email: "hana@example.com"}, fx.sess)
		require.True(t, res.Success)
		require.Len(t, res.Orders, 1)
		assert.Equal(t, "hana@example.com", fx.sess.Email())
	})

	t.Run("session email used when argument absent", func(t *testing.T) {
		fx := newExecutorFixture(t)
		fx.sess.Identify("hana@example.com")
		res := fx.exec.Execute(ctx, ToolOrders, OrdersInput{}, fx.sess)
		require.True(t, res.Success)
		assert.Len(t, res.Orders, 1)
	})

	t.Run("falls back to customer id lookup", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolOrders, OrdersInput{Email: "legacy@example.com"}, fx.sess)
		require.True(t, res.Success)
		require.Len(t, res.Orders, 1)
		assert.Equal(t, "order_legacy", res.Orders[0].OrderNumber)
	})

	t.Run("no orders is a success", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolOrders, OrdersInput{Email: "new@example.com"}, fx.sess)
		assert.True(t, res.Success)
		assert.Contains(t, res.Message, "주문 내역이 없어요")
		assert.Empty(t, res.Orders)
	})
}

func TestExecuteCreateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success stages order and opens payment", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 1, Quantity: 2, Email: "hana@example.com"}, fx.sess)

		require.True(t, res.Success)
		assert.True(t, res.PaymentInitiated)
		assert.Equal(t, int64(24000), res.TotalPrice)
		assert.NotEmpty(t, res.OrderNumber)
		assert.Equal(t, "hana@example.com", fx.sess.Email())

		require.Len(t, fx.payments.checkouts, 1)
		co := fx.payments.checkouts[0]
		assert.Equal(t, int64(24000), co.Amount)
		assert.Equal(t, "하나", co.CustomerName, "customer record name wins over email-derived name")

		staged, ok := fx.staging.Consume(res.OrderNumber)
		require.True(t, ok)
		assert.Equal(t, int64(24000), staged.TotalAmount)
		require.Len(t, staged.Items, 1)
		assert.Equal(t, 2, staged.Items[0].Quantity)
	})

	t.Run("unregistered email without a name fails closed", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 1, Quantity: 1, Email: "newbie@example.com"}, fx.sess)

		assert.False(t, res.Success, "identity must never be invented for the payment gateway")
		assert.Contains(t, res.Message, "이름")
		assert.Zero(t, fx.staging.Len())
		assert.Empty(t, fx.payments.checkouts)
	})

	t.Run("customer_name argument serves first-time shoppers", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 1, Quantity: 1, Email: "newbie@example.com", CustomerName: "새봄"}, fx.sess)

		require.True(t, res.Success)
		require.Len(t, fx.payments.checkouts, 1)
		assert.Equal(t, "새봄", fx.payments.checkouts[0].CustomerName)
	})

	t.Run("registered name wins over the argument", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 1, Quantity: 1, Email: "hana@example.com", CustomerName: "가명"}, fx.sess)

		require.True(t, res.Success)
		require.Len(t, fx.payments.checkouts, 1)
		assert.Equal(t, "하나", fx.payments.checkouts[0].CustomerName)
	})

	t.Run("no email fails closed", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolCreateOrder, CreateOrderInput{ProductID: 1, Quantity: 1}, fx.sess)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "이메일")
		assert.Zero(t, fx.staging.Len())
	})

	t.Run("insufficient stock reports current count and stages nothing", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 2, Quantity: 10, Email: "hana@example.com"}, fx.sess)

		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "현재 재고: 3개")
		assert.Zero(t, fx.staging.Len())
		assert.Empty(t, fx.payments.checkouts, "payment must not start for an unfillable order")
	})

	t.Run("unknown product", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 999, Quantity: 1, Email: "hana@example.com"}, fx.sess)
		assert.False(t, res.Success)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		fx := newExecutorFixture(t)
		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 1, Quantity: 0, Email: "hana@example.com"}, fx.sess)
		assert.False(t, res.Success)
	})

	t.Run("unconfigured payment gateway soft-fails", func(t *testing.T) {
		fx := newExecutorFixture(t)
		// A real client without keys, the wiring a keyless deployment gets.
		fx.exec.payments = payment.NewClient("", "", log.NewNop())

		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 1, Quantity: 1, Email: "hana@example.com"}, fx.sess)

		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "결제가 취소되었습니다")
		assert.Zero(t, fx.staging.Len())
	})

	t.Run("missing payment collaborator soft-fails", func(t *testing.T) {
		fx := newExecutorFixture(t)
		fx.exec.payments = nil

		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 1, Quantity: 1, Email: "hana@example.com"}, fx.sess)

		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "결제")
		assert.Zero(t, fx.staging.Len())
	})

	t.Run("payment initiation failure cancels the checkout", func(t *testing.T) {
		fx := newExecutorFixture(t)
		fx.payments.err = payment.ErrNotConfigured

		res := fx.exec.Execute(ctx, ToolCreateOrder,
			CreateOrderInput{ProductID: 1, Quantity: 1, Email: "hana@example.com"}, fx.sess)

		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "결제가 취소되었습니다")
		assert.Zero(t, fx.staging.Len(), "staged order must be discarded")
	})
}

func TestExecuteUnknownTool(t *testing.T) {
	t.Parallel()
	fx := newExecutorFixture(t)

	res := fx.exec.Execute(context.Background(), "time_travel", nil, fx.sess)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}
