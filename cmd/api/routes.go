package main

import (
	"crm-relay/internal/auth"
	"crm-relay/internal/httpapi"
	"crm-relay/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authManager *auth.Manager) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public; each source authenticates by signature
	// where the provider supports one).
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/calendly", h.CalendlyWebhook)
		webhooks.POST("/fathom", h.FathomWebhook)
		webhooks.POST("/fathom/:account", h.FathomAccountWebhook)
		webhooks.POST("/heyreach", h.HeyReachWebhook)
		webhooks.POST("/clay", h.ClayWebhook)
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/token", h.IssueToken)

		ops := v1.Group("/ops")
		ops.Use(auth.RequireAccessToken(authManager))
		ops.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleAdmin))
		{
			ops.GET("/ping", func(c *gin.Context) {
				operator, _ := auth.Operator(c.Request.Context())
				c.JSON(200, gin.H{"status": "ok", "operator": operator})
			})
			ops.GET("/stores", h.StoreStats)
			ops.GET("/deliveries", h.RecentDeliveries)
		}
	}
}
