// Package assistant implements the conversational shopping assistant: a
// tool-calling loop that lets a language model search the catalog, check
// stock, look up orders and start checkouts on the customer's behalf.
package assistant

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/catalog"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

// Customer-facing messages for failures the model cannot talk its way out of.
const (
	// msgAuthFailed covers invalid or missing provider credentials. Retrying
	// another model behind the same key would fail identically.
	msgAuthFailed = "죄송해요, 상담 서비스의 API 키 인증에 문제가 있어서 지금은 도와드릴 수 없어요. 고객센터(1234-5678)에 설정 확인을 요청해주세요."

	// msgRateLimited covers provider-side throttling.
	msgRateLimited = "지금 문의가 많아서 답변이 어려워요. 잠시 후 다시 시도해주세요!"

	// msgRoundLimit is returned when the model keeps requesting tools past
	// the round ceiling.
	msgRoundLimit = "죄송해요, 요청을 처리하지 못했어요. 조금 더 구체적으로 말씀해주시면 도와드릴게요!"

	// msgUnavailable is returned when every fallback model failed.
	msgUnavailable = "죄송해요, 지금은 답변을 드리기 어려워요. 잠시 후 다시 시도해주세요."

	// msgEmptyResponse is returned when the model produces no text.
	msgEmptyResponse = "죄송해요, 답변을 만들지 못했어요. 다시 한 번 말씀해주시겠어요?"
)

// Reply is the assistant's answer to one user message.
type Reply struct {
	// Text is the customer-facing answer.
	Text string

	// Products are the items from the last successful product listing of
	// this turn, so the storefront can render product cards next to the
	// answer.
	Products []*catalog.Product

	// Model is the provider-qualified model that produced the answer, empty
	// when no model did.
	Model string
}

// Config tunes the assistant.
type Config struct {
	// Models is the ordered fallback chain of provider-qualified model
	// names. The first entry is the primary model.
	Models []string

	Temperature float32
	MaxTokens   int

	// MaxToolRounds caps tool-calling rounds per user message.
	MaxToolRounds int

	// RequestsPerSecond throttles completion attempts. Zero disables
	// throttling.
	RequestsPerSecond float64

	// Breaker tunes the per-model circuit breakers. The zero value picks
	// the defaults.
	Breaker BreakerConfig
}

// Assistant runs the conversational tool-calling loop.
// Safe for concurrent use.
type Assistant struct {
	g    *genkit.Genkit
	exec *Executor

	tools     []ai.Tool
	models    []string
	temp      float32
	maxTokens int
	maxRounds int

	limiter *rate.Limiter

	// breakers holds one circuit breaker per configured model, so a dead
	// primary is skipped without suspending its fallbacks.
	breakers map[string]*breaker

	logger log.Logger
}

// New creates the assistant and registers the storefront tools with Genkit.
func New(g *genkit.Genkit, exec *Executor, cfg Config, logger log.Logger) (*Assistant, error) {
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("at least one model is required")
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 3
	}
	if logger == nil {
		logger = log.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	breakers := make(map[string]*breaker, len(cfg.Models))
	for _, m := range cfg.Models {
		breakers[m] = newBreaker(cfg.Breaker)
	}

	return &Assistant{
		g:         g,
		exec:      exec,
		tools:     Register(g, exec),
		models:    slices.Clone(cfg.Models),
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
		maxRounds: cfg.MaxToolRounds,
		limiter:   limiter,
		breakers:  breakers,
		logger:    logger,
	}, nil
}

// HandleUserMessage answers one user message. history is the prior
// conversation (user and model turns); sess carries the per-session state the
// tools read and write.
//
// The reply is always customer-facing: provider failures come back as polite
// fallback text, never as an error. The returned error is reserved for
// context cancellation.
func (a *Assistant) HandleUserMessage(ctx context.Context, sess *Session, history []*ai.Message, text string) (*Reply, error) {
	if sess == nil {
		return nil, fmt.Errorf("session state is required")
	}

	ctx = NewContext(ctx, sess)
	base := make([]*ai.Message, 0, len(history)+1)
	base = append(base, history...)
	base = append(base, ai.NewUserMessage(ai.NewTextPart(text)))

	start := time.Now()
	for i, model := range a.models {
		reply, err := a.runModel(ctx, model, sess, base)
		if err == nil {
			a.logger.Debug("turn completed",
				"model", model,
				"attempts", i+1,
				"elapsed", time.Since(start))
			return reply, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		switch classifyModelError(err) {
		case categoryAuth:
			// Terminal: every model behind this key will reject us.
			a.logger.Error("model authentication failed", "model", model, "error", err)
			return &Reply{Text: msgAuthFailed}, nil
		case categoryRateLimit:
			a.logger.Warn("model rate limited", "model", model, "error", err)
			return &Reply{Text: msgRateLimited}, nil
		case categoryModelNotFound:
			a.logger.Warn("model not available, trying fallback", "model", model, "error", err)
		default:
			a.logger.Warn("model call failed, trying fallback", "model", model, "error", err)
		}
	}

	a.logger.Error("all models exhausted", "models", a.models)
	return &Reply{Text: msgUnavailable}, nil
}

// runModel drives the tool-calling loop against one model. It returns an
// error only for model-call failures; tool failures are folded into the
// conversation as data.
func (a *Assistant) runModel(ctx context.Context, model string, sess *Session, base []*ai.Message) (*Reply, error) {
	msgs := slices.Clone(base)
	var lastListing []*catalog.Product

	for round := 0; ; round++ {
		resp, err := a.generate(ctx, model, sess, msgs)
		if err != nil {
			return nil, err
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			text := resp.Text()
			if text == "" {
				text = msgEmptyResponse
			}
			return &Reply{Text: text, Products: lastListing, Model: model}, nil
		}

		if round >= a.maxRounds {
			a.logger.Warn("tool round limit reached",
				"model", model,
				"rounds", round,
				"pending_requests", len(requests))
			// Text only: a turn the model could not finish has no listing
			// worth rendering next to the apology.
			return &Reply{Text: msgRoundLimit, Model: model}, nil
		}

		// Carry the model's tool-request turn, then answer every request in
		// the order the model issued them. Strictly sequential: create_order
		// after check_stock must see the same world the model reasoned about.
		msgs = append(msgs, resp.Message)

		parts := make([]*ai.Part, 0, len(requests))
		for _, req := range requests {
			result := a.exec.Execute(ctx, req.Name, req.Input, sess)
			if result.Success && len(result.Products) > 0 {
				lastListing = result.Products
			}
			// Ref ties the response back to its request when the model
			// issued several calls in one turn.
			parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   req.Name,
				Ref:    req.Ref,
				Output: result,
			}))
		}
		msgs = append(msgs, ai.NewMessage(ai.RoleTool, nil, parts...))
	}
}

// generate performs one completion attempt behind the rate limiter and the
// model's circuit breaker.
func (a *Assistant) generate(ctx context.Context, model string, sess *Session, msgs []*ai.Message) (*ai.ModelResponse, error) {
	br := a.breakers[model]
	if err := br.allow(); err != nil {
		return nil, fmt.Errorf("%s: %w", model, err)
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	toolRefs := make([]ai.ToolRef, len(a.tools))
	for i, t := range a.tools {
		toolRefs[i] = t
	}

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(model),
		ai.WithSystem(systemPrompt(sess)),
		ai.WithMessages(msgs...),
		ai.WithTools(toolRefs...),
		// The loop owns tool execution; Genkit must hand requests back
		// instead of running them.
		ai.WithReturnToolRequests(true),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(a.temp),
			MaxOutputTokens: a.maxTokens,
		}),
	)
	if err != nil {
		br.failure()
		return nil, fmt.Errorf("generate with %s: %w", model, err)
	}

	br.success()
	return resp, nil
}
