package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseTenantModel is the base model for all tenant-scoped entities
type BaseTenantModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID       `gorm:"type:uuid;index;not null;constraint:OnDelete:RESTRICT" json:"tenant_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BaseModel is the base model for system-wide entities
type BaseModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate hook to generate UUID if not set
func (b *BaseTenantModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook to generate UUID if not set
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Tenant represents a company/organization selling through the virtual agent
type Tenant struct {
	BaseModel
	Name   string `gorm:"not null" json:"name" validate:"required"`
	Domain string `json:"domain"`
	Status string `gorm:"default:'active'" json:"status"`
	About  string `gorm:"type:text" json:"about"`

	// Virtual agent configuration
	AIToneOfVoice        string `gorm:"type:text" json:"ai_tone_of_voice"`        // tom de voz da marca (ex: "descontraído e acolhedor")
	AICustomInstructions string `gorm:"type:text" json:"ai_custom_instructions"`  // instruções adicionais do lojista
	AIResponseStyle      string `gorm:"default:'short'" json:"ai_response_style"` // short, detailed
	AIWelcomeMessage     string `gorm:"type:text" json:"ai_welcome_message"`
	CatalogExcerptLimit  int    `gorm:"default:30" json:"catalog_excerpt_limit"` // produtos listados no prompt
}

// User represents an operator or admin that can take over conversations
type User struct {
	BaseModel
	TenantID    *uuid.UUID `gorm:"type:uuid;index;constraint:OnDelete:SET NULL" json:"tenant_id,omitempty"` // null for system admins
	Email       string     `gorm:"unique;not null" json:"email" validate:"required,email"`
	Password    string     `gorm:"not null" json:"-"`
	Name        string     `gorm:"not null" json:"name" validate:"required"`
	Role        string     `gorm:"not null" json:"role" validate:"required"` // system_admin, tenant_admin, operator
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
}
