package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s01095235840-oss/pastel-buddy-shop/api"
	"github.com/s01095235840-oss/pastel-buddy-shop/db"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/assistant"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/cart"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/catalog"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/config"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/customer"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/order"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/payment"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/session"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	catalogStore := catalog.New(pool, logger)
	customerStore := customer.New(pool, logger)
	orderStore := order.NewStore(pool, logger)

	a.Staging = order.NewStaging(order.DefaultStagingTTL)
	a.Sessions = session.NewStore(pool, logger)
	a.Contexts = assistant.NewContextStore()

	// Always constructed: with keys missing, Initiate returns ErrNotConfigured
	// and the executor folds it into a polite tool failure instead of crashing
	// the conversation.
	payments := payment.NewClient(cfg.TossClientKey, cfg.TossSecretKey, logger)
	if !cfg.PaymentsEnabled() {
		logger.Warn("payment keys not configured, checkout is disabled")
	}

	exec := assistant.NewExecutor(assistant.ExecutorConfig{
		Catalog:    catalogStore,
		Customers:  customerStore,
		Orders:     orderStore,
		Staging:    a.Staging,
		Payments:   payments,
		SuccessURL: cfg.CheckoutSuccessURL,
		FailURL:    cfg.CheckoutFailURL,
	}, logger)

	a.Assistant, err = assistant.New(g, exec, assistant.Config{
		Models:        cfg.ModelChain(),
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		MaxToolRounds: cfg.MaxToolRounds,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating assistant: %w", err)
	}

	// Order lookup still works without a payment provider; only the
	// confirmation route depends on one.
	var confirmer api.PaymentConfirmer
	if cfg.PaymentsEnabled() {
		confirmer = payments
	}

	maxHistory := config.NormalizeMaxHistoryMessages(cfg.MaxHistoryMessages)
	a.Server = api.NewServer(api.ServerConfig{
		Pool:        pool,
		Chat:        api.NewChatHandler(a.Assistant, a.Sessions, a.Contexts, maxHistory, logger),
		Sessions:    api.NewSessionHandler(a.Sessions, a.Contexts, logger),
		Products:    api.NewProductHandler(catalogStore, logger),
		Orders:      api.NewOrderHandler(orderStore, customerStore, confirmer, a.Staging, catalogStore, logger),
		Cart:        api.NewCartHandler(cart.NewStore(pool, logger), logger),
		CORSOrigins: cfg.CORSOrigins,
	}, logger)

	return a, nil
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Debug("database pool ready",
		"host", cfg.PostgresHost,
		"database", cfg.PostgresDBName)
	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderGoogleAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
	default: // openai
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
	}

	logger.Info("initialized Genkit",
		"provider", cfg.Provider,
		"model", cfg.ModelName)
	return g, nil
}
