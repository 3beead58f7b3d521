package handlers

import (
	"net/http"
	"strconv"

	"vendazap/internal/http/middleware"
	"vendazap/internal/services"
	"vendazap/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ConversationHandler exposes the operator-facing conversation endpoints
type ConversationHandler struct {
	store *services.ConversationStore
	hub   *WebSocketHub
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(store *services.ConversationStore, hub *WebSocketHub) *ConversationHandler {
	return &ConversationHandler{store: store, hub: hub}
}

// List returns the tenant conversations, most recent first. ?attention=true
// narrows to the human-attention queue.
func (h *ConversationHandler) List(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	attentionOnly := c.QueryParam("attention") == "true"

	result, err := h.store.List(tenantID, page, perPage, attentionOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "erro ao listar conversas"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID returns one conversation
func (h *ConversationHandler) GetByID(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID inválido"})
	}

	conversation, err := h.store.GetByID(tenantID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "conversa não encontrada"})
	}

	return c.JSON(http.StatusOK, conversation)
}

// ListMessages returns the paginated transcript
func (h *ConversationHandler) ListMessages(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID inválido"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	result, err := h.store.ListMessages(tenantID, id, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "erro ao listar mensagens"})
	}

	return c.JSON(http.StatusOK, result)
}

// TakeoverRequest selects the target mode of a takeover
type TakeoverRequest struct {
	Mode string `json:"mode" validate:"required,oneof=human hybrid"`
}

// Takeover moves the conversation to human or hybrid mode
func (h *ConversationHandler) Takeover(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID inválido"})
	}

	var req TakeoverRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	conversation, err := h.store.Takeover(tenantID, id, req.Mode)
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	h.broadcastMode(tenantID, conversation)
	return c.JSON(http.StatusOK, conversation)
}

// Release hands the conversation back to the virtual agent
func (h *ConversationHandler) Release(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID inválido"})
	}

	conversation, err := h.store.Release(tenantID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "conversa não encontrada"})
	}

	h.broadcastMode(tenantID, conversation)
	return c.JSON(http.StatusOK, conversation)
}

// OperatorMessageRequest is a human reply typed in the dashboard
type OperatorMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// SendOperatorMessage records a human reply in the transcript. The
// conversation must already be under human control.
func (h *ConversationHandler) SendOperatorMessage(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID inválido"})
	}

	var req OperatorMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	conversation, err := h.store.GetByID(tenantID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "conversa não encontrada"})
	}
	if conversation.Mode == models.ModeAI {
		return c.JSON(http.StatusConflict, map[string]string{"error": "assuma a conversa antes de responder manualmente"})
	}

	msg, err := h.store.AppendOperatorMessage(tenantID, id, req.Content)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "erro ao registrar mensagem"})
	}

	if h.hub != nil {
		h.hub.Broadcast(tenantID, WebSocketEvent{
			Type:           "message.operator",
			ConversationID: id,
			Payload:        msg,
		})
	}

	return c.JSON(http.StatusCreated, msg)
}

func (h *ConversationHandler) broadcastMode(tenantID uuid.UUID, conversation *models.Conversation) {
	if h.hub == nil {
		return
	}
	h.hub.Broadcast(tenantID, WebSocketEvent{
		Type:           "conversation.mode_changed",
		ConversationID: conversation.ID,
		Payload:        conversation,
	})
}
