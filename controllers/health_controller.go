package controllers

import (
	"net/http"

	"hashbroker/internal/database"
	"hashbroker/pkg/hashstore"

	"github.com/labstack/echo/v4"
)

// HealthController reports liveness of the backing store and the
// audit database.
type HealthController struct {
	store *hashstore.RedisHashStore
	db    *database.DB
}

// NewHealthController creates a new health controller.
func NewHealthController(store *hashstore.RedisHashStore, db *database.DB) *HealthController {
	return &HealthController{store: store, db: db}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	HashStore string `json:"hash_store"`
	Database  string `json:"database"`
	Message   string `json:"message,omitempty"`
}

// HealthCheck performs a health check of the application's external
// dependencies.
func (h *HealthController) HealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	response := HealthResponse{Status: "healthy", HashStore: "healthy", Database: "healthy"}

	if err := h.store.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.HashStore = "unhealthy"
		response.Message = "hash store connection failed: " + err.Error()
	}

	if err := h.db.Health(ctx); err != nil {
		response.Status = "unhealthy"
		response.Database = "unhealthy"
		if response.Message != "" {
			response.Message += "; "
		}
		response.Message += "audit database connection failed: " + err.Error()
	}

	if response.Status != "healthy" {
		return c.JSON(http.StatusServiceUnavailable, response)
	}
	return c.JSON(http.StatusOK, response)
}
