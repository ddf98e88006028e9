package controllers

import (
	"context"
	"net/http"

	"hashbroker/internal/audit"
	"hashbroker/internal/broker"
	"hashbroker/internal/session"

	"github.com/labstack/echo/v4"
)

// WebSocketController handles the WebSocket upgrade and the broker's
// diagnostic HTTP surface.
type WebSocketController struct {
	broker         *broker.Broker
	ids            *session.IDGenerator
	auditRepo      *audit.Repository
	rateLimitRPS   float64
	rateLimitBurst int
}

// NewWebSocketController creates the broker, starts its event loop in
// a goroutine, and returns a controller wired to it. auditRepo may be
// nil, in which case connection events are not recorded.
func NewWebSocketController(store broker.HashStore, auditRepo *audit.Repository, inboxSize int, rateLimitRPS float64, rateLimitBurst int) *WebSocketController {
	b := broker.New(store, inboxSize)
	go b.Run(context.Background())

	return &WebSocketController{
		broker:         b,
		ids:            session.NewIDGenerator(),
		auditRepo:      auditRepo,
		rateLimitRPS:   rateLimitRPS,
		rateLimitBurst: rateLimitBurst,
	}
}

// HandleWebSocket upgrades the HTTP connection and registers a new
// session with the broker.
func (wsc *WebSocketController) HandleWebSocket(c echo.Context) error {
	var recorder session.ConnectionRecorder
	if wsc.auditRepo != nil {
		recorder = wsc.auditRepo
	}
	session.Handle(c.Response(), c.Request(), wsc.broker, wsc.ids, wsc.rateLimitRPS, wsc.rateLimitBurst, recorder)
	return nil
}

// GetStats returns broker diagnostics: connected-client count and
// per-hash subscriber counts.
func (wsc *WebSocketController) GetStats(c echo.Context) error {
	snapshot, err := wsc.broker.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "broker unavailable"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"connected_clients": snapshot.ConnectedClients,
		"subscriptions":     snapshot.Subscriptions,
		"service":           "hashbroker",
		"status":            "active",
	})
}

// GetBroker returns the broker (for use in other parts of the
// application, e.g. health checks).
func (wsc *WebSocketController) GetBroker() *broker.Broker {
	return wsc.broker
}
