package handlers

import (
	"net/http"

	"vendazap/internal/ai"
	"vendazap/internal/http/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// MessageHandler exposes the inbound entry point of the conversation
// pipeline.
type MessageHandler struct {
	aiService *ai.AIService
	hub       *WebSocketHub
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(aiService *ai.AIService, hub *WebSocketHub) *MessageHandler {
	return &MessageHandler{aiService: aiService, hub: hub}
}

// InboundRequest is one customer message arriving from any channel
type InboundRequest struct {
	ConversationID string `json:"conversation_id,omitempty" validate:"omitempty,uuid"`
	Channel        string `json:"channel,omitempty" validate:"omitempty,oneof=chatweb whatsapp instagram"`
	Content        string `json:"content,omitempty"`
	ImageURL       string `json:"image_url,omitempty" validate:"omitempty,url"`
	AudioURL       string `json:"audio_url,omitempty" validate:"omitempty,url"`
}

// Inbound receives a customer message, runs the full pipeline and returns
// everything the turn produced. Channels that deliver asynchronously
// (WhatsApp) relay the reply themselves; chatweb consumes it directly from
// the response.
func (h *MessageHandler) Inbound(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	var req InboundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if req.Content == "" && req.ImageURL == "" && req.AudioURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "mensagem vazia: informe content, image_url ou audio_url"})
	}

	conversationID := uuid.Nil
	if req.ConversationID != "" {
		conversationID, _ = uuid.Parse(req.ConversationID)
	}

	result, err := h.aiService.ProcessInboundMessage(c.Request().Context(), ai.InboundMessage{
		TenantID:       tenantID,
		ConversationID: conversationID,
		Channel:        req.Channel,
		Content:        req.Content,
		ImageURL:       req.ImageURL,
		AudioURL:       req.AudioURL,
	})
	if err != nil {
		log.Error().Err(err).
			Str("tenant_id", tenantID.String()).
			Msg("Falha no pipeline de mensagem inbound")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "erro ao processar mensagem"})
	}

	h.notifyOperators(tenantID, result)

	return c.JSON(http.StatusOK, result)
}

// notifyOperators pushes turn events to connected operator dashboards
func (h *MessageHandler) notifyOperators(tenantID uuid.UUID, result *ai.PipelineResult) {
	if h.hub == nil {
		return
	}

	h.hub.Broadcast(tenantID, WebSocketEvent{
		Type:           "message.received",
		ConversationID: result.Conversation.ID,
		Payload:        result.UserMessage,
	})

	if result.Reply != nil {
		h.hub.Broadcast(tenantID, WebSocketEvent{
			Type:           "message.replied",
			ConversationID: result.Conversation.ID,
			Payload:        result.Reply,
		})
	}

	if result.Transferred || result.Conversation.NeedsHumanAttention {
		h.hub.Broadcast(tenantID, WebSocketEvent{
			Type:           "conversation.attention",
			ConversationID: result.Conversation.ID,
			Payload:        result.Conversation,
		})
	}
}
