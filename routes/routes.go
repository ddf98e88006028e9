package routes

import (
	"log"

	"hashbroker/config"
	"hashbroker/controllers"
	"hashbroker/internal/audit"
	"hashbroker/internal/database"
	"hashbroker/internal/middleware"
	"hashbroker/pkg/hashstore"

	"github.com/labstack/echo/v4"
)

// SetupRoutes wires the hash store, the audit database, the broker,
// and the HTTP/WebSocket surface onto e.
func SetupRoutes(e *echo.Echo, db *database.DB, cfg *config.Config) {
	store, err := hashstore.New(cfg.HashStoreAddr)
	if err != nil {
		log.Fatalf("routes: connect hash store: %v", err)
	}

	auditRepo := audit.NewRepository(db)

	websocketController := controllers.NewWebSocketController(
		store,
		auditRepo,
		cfg.InboxSize,
		float64(cfg.RateLimitRPS),
		cfg.RateLimitBurst,
	)
	healthController := controllers.NewHealthController(store, db)

	e.Use(middleware.CORS(cfg))
	e.Use(middleware.RateLimit(cfg))

	e.GET("/healthz", healthController.HealthCheck)
	e.GET("/ws", websocketController.HandleWebSocket)
	e.GET("/stats", websocketController.GetStats)
}
