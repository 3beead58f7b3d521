package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a buyer, deduplicated per tenant across channels.
// Identification priority when matching: phone, email, CPF, CNPJ — the first
// non-empty key wins.
type Customer struct {
	BaseTenantModel
	Phone    string `gorm:"index" json:"phone"` // only digits, no formatting
	Name     string `json:"name"`
	Email    string `gorm:"index" json:"email"`
	CPF      string `gorm:"index" json:"cpf"`
	CNPJ     string `gorm:"index" json:"cnpj"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Lifetime stats accumulated by the order finalizer
	TotalOrders int        `gorm:"default:0" json:"total_orders"`
	TotalSpent  string     `gorm:"default:'0'" json:"total_spent"`
	LastOrderAt *time.Time `json:"last_order_at"`
}

// Order statuses. Only the admin-facing CRUD advances an order past pending.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderPreparing = "preparing"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
}

// Order represents an order created by the agent (or the admin UI)
type Order struct {
	BaseTenantModel
	CustomerID       *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"customer_id"`
	ConversationID   *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"conversation_id"`
	ConfirmationCode string     `gorm:"not null;index" json:"confirmation_code"`
	Status           string     `gorm:"default:'pending'" json:"status"`
	TotalAmount      string     `gorm:"default:'0'" json:"total_amount"`
	Currency         string     `gorm:"default:'BRL'" json:"currency"`
	PaymentMethod    string     `json:"payment_method"`

	// Historical customer data for order integrity
	CustomerName  *string `json:"customer_name"`
	CustomerPhone *string `json:"customer_phone"`

	// Historical shipping address data
	ShippingStreet       *string `json:"shipping_street"`
	ShippingComplement   *string `json:"shipping_complement"`
	ShippingNeighborhood *string `json:"shipping_neighborhood"`
	ShippingCity         *string `json:"shipping_city"`
	ShippingState        *string `json:"shipping_state"`
	ShippingZipcode      *string `json:"shipping_zipcode"`

	// Relations
	Customer     *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
	Items        []OrderItem   `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// CanTransitionTo reports whether the order status may advance to target.
func (o *Order) CanTransitionTo(target string) bool {
	for _, t := range orderTransitions[o.Status] {
		if t == target {
			return true
		}
	}
	return false
}

// OrderItem represents an item in an order. Price always comes from the
// catalog snapshot at finalization time, never from the caller.
type OrderItem struct {
	BaseTenantModel
	OrderID   uuid.UUID  `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"order_id"`
	ProductID *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"product_id"`
	Quantity  int        `gorm:"not null" json:"quantity"`
	UnitPrice string     `gorm:"not null" json:"unit_price"`
	Total     string     `gorm:"not null" json:"total"`

	// Historical product data for order integrity
	ProductName *string `json:"product_name"`

	// Relations
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
