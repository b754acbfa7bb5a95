// Package app wires the application together: database pool, Genkit,
// stores, the assistant and the HTTP server.
package app

import (
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s01095235840-oss/pastel-buddy-shop/api"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/assistant"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/config"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/order"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/session"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	DBPool *pgxpool.Pool

	Assistant *assistant.Assistant
	Contexts  *assistant.ContextStore
	Sessions  *session.Store
	Staging   *order.Staging

	Server *api.Server
}

// Close releases all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	return nil
}
