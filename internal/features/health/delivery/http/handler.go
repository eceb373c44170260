package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/azatarm-prog/telegive-giveaway/internal/clients"
	"github.com/azatarm-prog/telegive-giveaway/internal/platform/postgres"
)

const serviceVersion = "1.0.0"

// HealthHandler reports service health. The database is the only hard
// dependency: if it is down the service is unhealthy; an unreachable
// collaborator only degrades the report.
type HealthHandler struct {
	db            *postgres.Client
	collaborators []clients.HealthChecker
}

func NewHealthHandler(db *postgres.Client, collaborators ...clients.HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, collaborators: collaborators}
}

func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)
	router.GET("/health/database", h.databaseHealth)
	router.GET("/health/services", h.servicesHealth)
}

func (h *HealthHandler) health(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "connected"
	if err := h.db.HealthCheck(ctx); err != nil {
		dbStatus = "disconnected"
	}

	external := h.probeCollaborators(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if dbStatus != "connected" {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		for _, accessible := range external {
			if accessible != "accessible" {
				status = "degraded"
				break
			}
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":            status,
		"service":           "telegive-giveaway",
		"version":           serviceVersion,
		"database":          dbStatus,
		"external_services": external,
	})
}

func (h *HealthHandler) databaseHealth(c *gin.Context) {
	if err := h.db.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	stats := h.db.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"database":         "connected",
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
	})
}

func (h *HealthHandler) servicesHealth(c *gin.Context) {
	external := h.probeCollaborators(c.Request.Context())

	status := "healthy"
	for _, accessible := range external {
		if accessible != "accessible" {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"services": external,
	})
}

// probeCollaborators checks every collaborator in parallel; a probe is a
// bounded /health GET, so fan-out keeps the endpoint responsive.
func (h *HealthHandler) probeCollaborators(ctx context.Context) map[string]string {
	results := make(map[string]string, len(h.collaborators))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, collaborator := range h.collaborators {
		wg.Add(1)
		go func(hc clients.HealthChecker) {
			defer wg.Done()
			value := "inaccessible"
			if hc.Healthy(ctx) {
				value = "accessible"
			}
			mu.Lock()
			results[hc.Name()+"_service"] = value
			mu.Unlock()
		}(collaborator)
	}
	wg.Wait()
	return results
}
