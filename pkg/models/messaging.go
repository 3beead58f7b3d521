package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation channels
const (
	ChannelChatWeb   = "chatweb"
	ChannelWhatsApp  = "whatsapp"
	ChannelInstagram = "instagram"
)

// Conversation modes. The mode flag is the sole gate for the orchestration
// pipeline: anything other than ModeAI persists inbound messages but skips
// the virtual agent entirely.
const (
	ModeAI     = "ai"
	ModeHuman  = "human"
	ModeHybrid = "hybrid"
)

// Conversation status
const (
	ConversationActive = "active"
	ConversationClosed = "closed"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleOperator  = "operator"
)

// Conversation represents an ongoing dialog between a customer and the agent
type Conversation struct {
	BaseTenantModel
	Channel    string     `gorm:"not null;default:'chatweb'" json:"channel"` // chatweb, whatsapp, instagram
	Mode       string     `gorm:"not null;default:'ai'" json:"mode"`         // ai, human, hybrid
	Status     string     `gorm:"not null;default:'active'" json:"status"`   // active, closed
	CustomerID *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"customer_id,omitempty"`

	// Classification written by the conversation analyzer
	CurrentIntent   string     `gorm:"default:'browsing'" json:"current_intent"`
	SentimentScore  int        `gorm:"default:0" json:"sentiment_score"`   // -100..100
	ComplexityScore int        `gorm:"default:30" json:"complexity_score"` // 0..100
	ActiveAgentType string     `gorm:"default:'seller'" json:"active_agent_type"`
	AnalyzedAt      *time.Time `json:"analyzed_at,omitempty"`

	// Human hand-off
	NeedsHumanAttention bool   `gorm:"default:false" json:"needs_human_attention"`
	TransferReason      string `json:"transfer_reason"`

	LastMessageAt *time.Time `json:"last_message_at"`
	UnreadCount   int        `gorm:"default:0" json:"unread_count"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// EscalateMode switches the conversation toward human control. Legal
// escalations: ai→hybrid, ai→human, hybrid→human. Returning to ai requires
// ReleaseToAI — there is no implicit human→ai transition.
func (c *Conversation) EscalateMode(target string) error {
	legal := map[string][]string{
		ModeAI:     {ModeHybrid, ModeHuman},
		ModeHybrid: {ModeHuman},
	}
	for _, t := range legal[c.Mode] {
		if t == target {
			c.Mode = target
			return nil
		}
	}
	return fmt.Errorf("transição de modo inválida: %s -> %s", c.Mode, target)
}

// ReleaseToAI is the explicit release action that hands the conversation
// back to the virtual agent and clears the attention flag.
func (c *Conversation) ReleaseToAI() {
	c.Mode = ModeAI
	c.NeedsHumanAttention = false
	c.TransferReason = ""
}

// Message represents a single immutable turn in a conversation
type Message struct {
	BaseTenantModel
	ConversationID uuid.UUID        `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"conversation_id"`
	Role           string           `gorm:"not null" json:"role"` // user, assistant, operator
	Content        string           `gorm:"type:text" json:"content"`
	Metadata       *MessageMetadata `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relations
	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
}

// Metadata kinds carried by messages. Exactly one payload field is populated
// per kind — the variant is explicit instead of a loose object shape.
const (
	MetaImage             = "image"
	MetaCartSnapshot      = "cart_snapshot"
	MetaCEPLookup         = "cep_lookup"
	MetaOrderConfirmation = "order_confirmation"
	MetaProductCard       = "product_card"
)

// MessageMetadata is the tagged-union payload attached to a message.
type MessageMetadata struct {
	Kind        string             `json:"kind"`
	Image       *ImageAttachment   `json:"image,omitempty"`
	Cart        *CartSnapshot      `json:"cart,omitempty"`
	CEP         *CEPLookupResult   `json:"cep,omitempty"`
	Order       *OrderConfirmation `json:"order,omitempty"`
	ProductCard *ProductCardRef    `json:"product_card,omitempty"`
}

// ImageAttachment references an image attached to a customer message
type ImageAttachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	S3Key    string `json:"s3_key,omitempty"`
}

// CartSnapshot records the items the agent placed in the customer cart
type CartSnapshot struct {
	Items []CartSnapshotItem `json:"items"`
	Total string             `json:"total"`
}

// CartSnapshotItem is a single resolved cart entry
type CartSnapshotItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
}

// CEPLookupResult records a postal lookup outcome attached to a message
type CEPLookupResult struct {
	CEP          string `json:"cep"`
	Street       string `json:"street,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Found        bool   `json:"found"`
}

// OrderConfirmation links a message to the order it confirmed
type OrderConfirmation struct {
	OrderID          uuid.UUID `json:"order_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	Total            string    `json:"total"`
}

// ProductCardRef carries the product card annotation emitted by the media
// annotator after the primary reply: the card text shows name, price and
// description, the metadata keeps the catalog id and image reference.
type ProductCardRef struct {
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url"`
}

// Value implements driver.Valuer for JSONB storage
func (m MessageMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage
func (m *MessageMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = MessageMetadata{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}
