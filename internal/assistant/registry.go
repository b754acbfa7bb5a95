package assistant

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Tool names the model can call. Names and descriptions are the contract
// with the model; changing them changes which tool the model picks.
const (
	ToolSearchProducts     = "search_products"
	ToolProductDetails     = "get_product_details"
	ToolProductsByCategory = "get_products_by_category"
	ToolAllProducts        = "get_all_products"
	ToolRecommendations    = "get_recommendations"
	ToolCheckStock         = "check_stock"
	ToolOrders             = "get_orders"
	ToolCreateOrder        = "create_order"
)

// toolNames is the single source of truth for registered tool names.
var toolNames = []string{
	ToolSearchProducts,
	ToolProductDetails,
	ToolProductsByCategory,
	ToolAllProducts,
	ToolRecommendations,
	ToolCheckStock,
	ToolOrders,
	ToolCreateOrder,
}

// ToolNames returns all registered tool names.
func ToolNames() []string {
	return toolNames
}

// Tool argument payloads. The jsonschema descriptions are shown to the model.

// SearchInput is the payload for search_products.
type SearchInput struct {
	Query string `json:"query" jsonschema_description:"검색 키워드 (상품 이름이나 설명의 일부)"`
}

// DetailsInput is the payload for get_product_details.
type DetailsInput struct {
	ProductID int64 `json:"product_id" jsonschema_description:"상품의 숫자 ID"`
}

// CategoryInput is the payload for get_products_by_category.
type CategoryInput struct {
	Category string `json:"category" jsonschema_description:"상품 카테고리 (예: Stationery, Tech, Digital, Food, Living)"`
}

// AllProductsInput is the (empty) payload for get_all_products.
type AllProductsInput struct{}

// RecommendInput is the payload for get_recommendations.
type RecommendInput struct {
	Count    int    `json:"count,omitempty" jsonschema_description:"추천 상품 개수 (기본 3개)"`
	Category string `json:"category,omitempty" jsonschema_description:"카테고리 제한 (선택)"`
}

// StockInput is the payload for check_stock.
type StockInput struct {
	ProductName string `json:"product_name" jsonschema_description:"재고를 확인할 상품 이름"`
}

// OrdersInput is the payload for get_orders.
type OrdersInput struct {
	Email string `json:"email,omitempty" jsonschema_description:"주문 조회에 사용할 고객 이메일 (이미 알고 있으면 생략)"`
}

// CreateOrderInput is the payload for create_order.
type CreateOrderInput struct {
	ProductID    int64  `json:"product_id" jsonschema_description:"주문할 상품의 숫자 ID"`
	Quantity     int    `json:"quantity" jsonschema_description:"주문 수량 (1 이상)"`
	Email        string `json:"email,omitempty" jsonschema_description:"주문자 이메일 (이미 알고 있으면 생략)"`
	CustomerName string `json:"customer_name,omitempty" jsonschema_description:"주문자 이름 (고객 정보에 등록되어 있으면 생략)"`
}

// Register defines every storefront tool with Genkit and returns the tool
// handles for generate requests.
//
// The conversation loop executes tool requests itself (it needs session
// state, strict ordering and soft-fail semantics), so these handlers are thin
// adapters that delegate to the same executor with the session resolved from
// the context.
func Register(g *genkit.Genkit, exec *Executor) []ai.Tool {
	run := func(ctx *ai.ToolContext, name string, input any) (*Result, error) {
		return exec.Execute(ctx.Context, name, input, SessionFromContext(ctx.Context)), nil
	}

	return []ai.Tool{
		genkit.DefineTool(g, ToolSearchProducts,
			"상품을 키워드로 검색해요. 상품 이름이나 설명의 일부로 찾을 수 있어요.",
			func(ctx *ai.ToolContext, input SearchInput) (*Result, error) {
				return run(ctx, ToolSearchProducts, input)
			}),
		genkit.DefineTool(g, ToolProductDetails,
			"상품 ID로 상세 정보를 조회해요.",
			func(ctx *ai.ToolContext, input DetailsInput) (*Result, error) {
				return run(ctx, ToolProductDetails, input)
			}),
		genkit.DefineTool(g, ToolProductsByCategory,
			"카테고리별 상품 목록을 조회해요.",
			func(ctx *ai.ToolContext, input CategoryInput) (*Result, error) {
				return run(ctx, ToolProductsByCategory, input)
			}),
		genkit.DefineTool(g, ToolAllProducts,
			"전체 상품 목록을 조회해요.",
			func(ctx *ai.ToolContext, input AllProductsInput) (*Result, error) {
				return run(ctx, ToolAllProducts, input)
			}),
		genkit.DefineTool(g, ToolRecommendations,
			"추천 상품을 골라서 보여줘요.",
			func(ctx *ai.ToolContext, input RecommendInput) (*Result, error) {
				return run(ctx, ToolRecommendations, input)
			}),
		genkit.DefineTool(g, ToolCheckStock,
			"상품 이름으로 재고를 확인해요.",
			func(ctx *ai.ToolContext, input StockInput) (*Result, error) {
				return run(ctx, ToolCheckStock, input)
			}),
		genkit.DefineTool(g, ToolOrders,
			"고객 이메일로 주문 내역을 조회해요. 이메일을 모르면 먼저 고객에게 물어봐야 해요.",
			func(ctx *ai.ToolContext, input OrdersInput) (*Result, error) {
				return run(ctx, ToolOrders, input)
			}),
		genkit.DefineTool(g, ToolCreateOrder,
			"상품을 주문하고 결제를 시작해요. 상품 ID, 수량, 주문자 이메일이 필요하고, 처음 주문하는 고객은 이름도 필요해요.",
			func(ctx *ai.ToolContext, input CreateOrderInput) (*Result, error) {
				return run(ctx, ToolCreateOrder, input)
			}),
	}
}
