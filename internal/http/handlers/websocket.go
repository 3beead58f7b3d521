package handlers

import (
	"net/http"
	"sync"

	"vendazap/internal/auth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// WebSocketEvent is one notification pushed to operator dashboards
type WebSocketEvent struct {
	Type           string      `json:"type"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	Payload        interface{} `json:"payload,omitempty"`
}

// WebSocketHub keeps operator connections grouped by tenant and fans events
// out to them.
type WebSocketHub struct {
	authService *auth.Service
	upgrader    websocket.Upgrader

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*websocket.Conn]bool
}

// NewWebSocketHub creates a new hub
func NewWebSocketHub(authService *auth.Service) *WebSocketHub {
	return &WebSocketHub{
		authService: authService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[uuid.UUID]map[*websocket.Conn]bool),
	}
}

// HandleWebSocket upgrades the connection. Authentication goes through the
// token query parameter because browsers cannot set headers on WebSocket
// upgrades.
func (h *WebSocketHub) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
	}

	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	if claims.TenantID == nil {
		return echo.NewHTTPError(http.StatusForbidden, "Token sem tenant")
	}
	tenantID := *claims.TenantID

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("Falha no upgrade WebSocket")
		return err
	}

	h.register(tenantID, conn)
	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("user_email", claims.Email).
		Msg("🔌 Operador conectado via WebSocket")

	defer func() {
		h.unregister(tenantID, conn)
		conn.Close()
		log.Info().Str("tenant_id", tenantID.String()).Msg("🔌 Operador desconectado")
	}()

	// Loop de leitura só para detectar desconexão; o canal é unidirecional
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	return nil
}

// Broadcast sends an event to every connection of a tenant
func (h *WebSocketHub) Broadcast(tenantID uuid.UUID, event WebSocketEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[tenantID]))
	for conn := range h.clients[tenantID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			log.Debug().Err(err).Msg("Falha ao enviar evento WebSocket, removendo conexão")
			h.unregister(tenantID, conn)
			conn.Close()
		}
	}
}

func (h *WebSocketHub) register(tenantID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[tenantID] == nil {
		h.clients[tenantID] = make(map[*websocket.Conn]bool)
	}
	h.clients[tenantID][conn] = true
}

func (h *WebSocketHub) unregister(tenantID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[tenantID], conn)
}
