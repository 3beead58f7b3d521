package handlers

import (
	"net/http"
	"strconv"

	"vendazap/internal/http/middleware"
	"vendazap/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// OrderHandler exposes order management to operators
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List returns tenant orders, newest first
func (h *OrderHandler) List(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	result, err := h.orders.List(tenantID, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "erro ao listar pedidos"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID returns one order with items
func (h *OrderHandler) GetByID(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID inválido"})
	}

	order, err := h.orders.GetByID(tenantID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "pedido não encontrado"})
	}

	return c.JSON(http.StatusOK, order)
}

// UpdateStatusRequest selects the target order status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed preparing shipped delivered cancelled"`
}

// UpdateStatus advances the order lifecycle
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID inválido"})
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	order, err := h.orders.UpdateStatus(tenantID, id, req.Status)
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, order)
}
