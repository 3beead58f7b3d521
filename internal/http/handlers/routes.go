package handlers

import (
	"vendazap/internal/app"
	"vendazap/internal/http/middleware"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all API routes
func SetupRoutes(api *echo.Group, services *app.Services) {
	hub := NewWebSocketHub(services.AuthService)

	// Auth routes (no authentication required)
	authHandler := NewAuthHandler(services.AuthService)
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Inbound channel webhook: public, tenant via X-Tenant-ID header
	messageHandler := NewMessageHandler(services.AIService, hub)
	messages := api.Group("/messages")
	messages.Use(middleware.TenantResolver())
	messages.Use(middleware.RequireTenant())
	messages.POST("/inbound", messageHandler.Inbound)

	// WebSocket endpoint (authenticates via query parameter)
	api.GET("/ws", hub.HandleWebSocket)

	// Protected operator routes
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(services.AuthService))
	protected.Use(middleware.TenantResolver())
	protected.Use(middleware.RequireTenant())
	protected.Use(middleware.OperatorOrAbove())

	conversationHandler := NewConversationHandler(services.ConversationStore, hub)
	conversations := protected.Group("/conversations")
	conversations.GET("", conversationHandler.List)
	conversations.GET("/:id", conversationHandler.GetByID)
	conversations.GET("/:id/messages", conversationHandler.ListMessages)
	conversations.POST("/:id/messages", conversationHandler.SendOperatorMessage)
	conversations.POST("/:id/takeover", conversationHandler.Takeover)
	conversations.POST("/:id/release", conversationHandler.Release)

	productHandler := NewProductHandler(services.CatalogService, services.EmbeddingService)
	products := protected.Group("/products")
	products.GET("", productHandler.List)
	products.GET("/:id", productHandler.GetByID)
	products.POST("", productHandler.Create, middleware.TenantAdminOrAbove())
	products.PUT("/:id", productHandler.Update, middleware.TenantAdminOrAbove())

	orderHandler := NewOrderHandler(services.OrderService)
	orders := protected.Group("/orders")
	orders.GET("", orderHandler.List)
	orders.GET("/:id", orderHandler.GetByID)
	orders.PUT("/:id/status", orderHandler.UpdateStatus)

	tenantHandler := NewTenantHandler(services.TenantService)
	settings := protected.Group("/settings")
	settings.GET("", tenantHandler.GetSettings, middleware.TenantAdminOrAbove())
	settings.PUT("", tenantHandler.UpdateSettings, middleware.TenantAdminOrAbove())
}
