package handlers

import (
	"net/http"

	"vendazap/internal/http/middleware"
	"vendazap/internal/services"

	"github.com/labstack/echo/v4"
)

// TenantHandler exposes the agent configuration of a tenant
type TenantHandler struct {
	tenants *services.TenantService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenants *services.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// GetSettings returns the tenant including agent configuration
func (h *TenantHandler) GetSettings(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	tenant, err := h.tenants.GetByID(tenantID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "tenant não encontrado"})
	}

	return c.JSON(http.StatusOK, tenant)
}

// AgentSettingsRequest carries the editable agent configuration
type AgentSettingsRequest struct {
	About                string `json:"about"`
	AIToneOfVoice        string `json:"ai_tone_of_voice"`
	AICustomInstructions string `json:"ai_custom_instructions"`
	AIResponseStyle      string `json:"ai_response_style" validate:"omitempty,oneof=short detailed"`
	AIWelcomeMessage     string `json:"ai_welcome_message"`
	CatalogExcerptLimit  int    `json:"catalog_excerpt_limit" validate:"omitempty,min=1,max=100"`
}

// UpdateSettings changes the agent configuration
func (h *TenantHandler) UpdateSettings(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	var req AgentSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	tenant, err := h.tenants.GetByID(tenantID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "tenant não encontrado"})
	}

	tenant.About = req.About
	tenant.AIToneOfVoice = req.AIToneOfVoice
	tenant.AICustomInstructions = req.AICustomInstructions
	if req.AIResponseStyle != "" {
		tenant.AIResponseStyle = req.AIResponseStyle
	}
	tenant.AIWelcomeMessage = req.AIWelcomeMessage
	if req.CatalogExcerptLimit > 0 {
		tenant.CatalogExcerptLimit = req.CatalogExcerptLimit
	}

	if err := h.tenants.Update(tenant); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "erro ao salvar configurações"})
	}

	return c.JSON(http.StatusOK, tenant)
}
