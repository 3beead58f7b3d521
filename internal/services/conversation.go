package services

import (
	"fmt"
	"time"

	"vendazap/internal/ai"
	"vendazap/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationStore persists conversations and their append-only message log
type ConversationStore struct {
	db *gorm.DB
}

// NewConversationStore creates a new conversation store
func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// GetOrCreate loads a conversation or opens a new one in ai mode when the
// given ID is uuid.Nil.
func (s *ConversationStore) GetOrCreate(tenantID, conversationID uuid.UUID, channel string) (*models.Conversation, error) {
	if conversationID != uuid.Nil {
		var conversation models.Conversation
		err := s.db.Where("tenant_id = ? AND id = ?", tenantID, conversationID).First(&conversation).Error
		if err != nil {
			return nil, fmt.Errorf("conversa não encontrada: %w", err)
		}
		return &conversation, nil
	}

	if channel == "" {
		channel = models.ChannelChatWeb
	}

	conversation := &models.Conversation{
		BaseTenantModel: models.BaseTenantModel{TenantID: tenantID},
		Channel:         channel,
		Mode:            models.ModeAI,
		Status:          models.ConversationActive,
		CurrentIntent:   "browsing",
		ComplexityScore: 30,
		ActiveAgentType: ai.AgentSeller,
	}
	if err := s.db.Create(conversation).Error; err != nil {
		return nil, fmt.Errorf("erro ao abrir conversa: %w", err)
	}
	return conversation, nil
}

// GetByID loads a conversation scoped to a tenant
func (s *ConversationStore) GetByID(tenantID, conversationID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.
		Preload("Customer").
		Where("tenant_id = ? AND id = ?", tenantID, conversationID).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// AppendMessage appends one turn and touches the conversation counters.
// Messages are immutable after this point.
func (s *ConversationStore) AppendMessage(msg *models.Message) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"last_message_at": time.Now(),
		}
		if msg.Role == models.RoleUser {
			updates["unread_count"] = gorm.Expr("unread_count + 1")
		}

		return tx.Model(&models.Conversation{}).
			Where("tenant_id = ? AND id = ?", msg.TenantID, msg.ConversationID).
			Updates(updates).Error
	})
}

// ListRecentMessages returns the last N turns in chronological order
func (s *ConversationStore) ListRecentMessages(tenantID, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Inverter para ordem cronológica
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// UpdateClassification writes the analyzer output onto the conversation
func (s *ConversationStore) UpdateClassification(tenantID, conversationID uuid.UUID, analysis ai.Analysis) error {
	now := time.Now()
	return s.db.Model(&models.Conversation{}).
		Where("tenant_id = ? AND id = ?", tenantID, conversationID).
		Updates(map[string]interface{}{
			"current_intent":    analysis.Intent,
			"sentiment_score":   analysis.Sentiment,
			"complexity_score":  analysis.Complexity,
			"active_agent_type": ai.SelectSpecialist(analysis.SuggestedAgent).Key,
			"analyzed_at":       now,
		}).Error
}

// MarkNeedsHuman flags the conversation for the attention queue and moves it
// to hybrid mode so the agent stops replying.
func (s *ConversationStore) MarkNeedsHuman(tenantID, conversationID uuid.UUID, reason string) error {
	return s.db.Model(&models.Conversation{}).
		Where("tenant_id = ? AND id = ?", tenantID, conversationID).
		Updates(map[string]interface{}{
			"needs_human_attention": true,
			"transfer_reason":       reason,
			"mode":                  models.ModeHybrid,
		}).Error
}

// LinkCustomer attaches a customer to the conversation
func (s *ConversationStore) LinkCustomer(tenantID, conversationID, customerID uuid.UUID) error {
	return s.db.Model(&models.Conversation{}).
		Where("tenant_id = ? AND id = ?", tenantID, conversationID).
		Update("customer_id", customerID).Error
}

// List returns conversations for a tenant, most recent activity first.
// attentionOnly narrows to the human-attention queue.
func (s *ConversationStore) List(tenantID uuid.UUID, page, perPage int, attentionOnly bool) (*models.PaginationResult[models.Conversation], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := s.db.Model(&models.Conversation{}).Where("tenant_id = ?", tenantID)
	if attentionOnly {
		query = query.Where("needs_human_attention = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var conversations []models.Conversation
	err := query.
		Preload("Customer").
		Order("last_message_at DESC NULLS LAST").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &models.PaginationResult[models.Conversation]{
		Data:       conversations,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// ListMessages returns the paginated transcript of a conversation
func (s *ConversationStore) ListMessages(tenantID, conversationID uuid.UUID, page, perPage int) (*models.PaginationResult[models.Message], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	query := s.db.Model(&models.Message{}).
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var messages []models.Message
	err := s.db.
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		Order("created_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &models.PaginationResult[models.Message]{
		Data:       messages,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// Takeover moves the conversation toward human control (ai→hybrid, ai→human
// or hybrid→human) and clears the unread counter for the operator.
func (s *ConversationStore) Takeover(tenantID, conversationID uuid.UUID, targetMode string) (*models.Conversation, error) {
	conversation, err := s.GetByID(tenantID, conversationID)
	if err != nil {
		return nil, err
	}

	if err := conversation.EscalateMode(targetMode); err != nil {
		return nil, err
	}
	conversation.NeedsHumanAttention = false
	conversation.TransferReason = ""
	conversation.UnreadCount = 0

	if err := s.db.Save(conversation).Error; err != nil {
		return nil, err
	}
	return conversation, nil
}

// Release hands the conversation back to the virtual agent
func (s *ConversationStore) Release(tenantID, conversationID uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.GetByID(tenantID, conversationID)
	if err != nil {
		return nil, err
	}

	conversation.ReleaseToAI()
	if err := s.db.Save(conversation).Error; err != nil {
		return nil, err
	}
	return conversation, nil
}

// AppendOperatorMessage records a human reply in the transcript
func (s *ConversationStore) AppendOperatorMessage(tenantID, conversationID uuid.UUID, content string) (*models.Message, error) {
	msg := &models.Message{
		BaseTenantModel: models.BaseTenantModel{TenantID: tenantID},
		ConversationID:  conversationID,
		Role:            models.RoleOperator,
		Content:         content,
	}
	if err := s.AppendMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}
