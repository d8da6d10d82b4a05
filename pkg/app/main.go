package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/marketplace/pkg/cache"
	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/database"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
)

// Application holds shared infrastructure dependencies for all services.
// Pass to each service's Routes call during server initialization.
//
// Logging: app.Logger is backed by a trace-aware handler. Use slog's context methods
// and trace_id, span_id, request_id and correlation_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "order placed", "order_id", id)
//	app.Logger.ErrorContext(ctx, "failed to save", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config       *config.Config
	Db           *database.Database
	Logger       logger.Logger
	Publisher    *events.Publisher // shared by every service facade in the process
	Catalog      *events.Catalog
	Redis        *cache.RedisClient // nil when the product read model is disabled
	SessionStore sessions.Store     // Redis-backed session store; nil in worker process
}
