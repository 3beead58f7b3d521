package models

import (
	"github.com/google/uuid"
)

// Product represents a sellable item in the tenant catalog
type Product struct {
	BaseTenantModel
	Name        string `gorm:"not null" json:"name" validate:"required"`
	Description string `json:"description"`
	Price       string `gorm:"not null" json:"price" validate:"required"` // decimal string, BRL
	SKU         string `gorm:"uniqueIndex:uni_products_tenant_sku" json:"sku"`
	Brand       string `json:"brand"`
	Tags        string `json:"tags"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
	IsPublished bool   `gorm:"default:true" json:"is_published"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`

	// Relations
	Images []ProductMedia `gorm:"foreignKey:ProductID" json:"images,omitempty"`
}

// ProductMedia represents media files associated with a product
type ProductMedia struct {
	BaseTenantModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"product_id"`
	Type      string    `gorm:"not null;default:'image'" json:"type"` // image, video
	URL       string    `gorm:"not null" json:"url"`
	S3Key     string    `json:"s3_key"`
	Alt       string    `json:"alt"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
}

// Sellable reports whether the product can be offered and sold by the agent.
// Only active AND published items participate in cart resolution, order
// creation and media annotation.
func (p *Product) Sellable() bool {
	return p.IsActive && p.IsPublished
}

// FirstImageURL returns the URL of the first image by sort order, or empty
// when the product has no image media.
func (p *Product) FirstImageURL() string {
	for _, m := range p.Images {
		if m.Type == "image" && m.URL != "" {
			return m.URL
		}
	}
	return ""
}
