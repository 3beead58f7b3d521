package services

import (
	"fmt"

	"vendazap/internal/ai"
	"vendazap/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogService provides product access for the agent and the admin API
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a new catalog service
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// Snapshot freezes the sellable catalog (active AND published) for one
// conversation turn. Ordering is stable so the prompt excerpt does not
// shuffle between turns.
func (s *CatalogService) Snapshot(tenantID uuid.UUID) (*ai.CatalogSnapshot, error) {
	var products []models.Product
	err := s.db.
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("tenant_id = ? AND is_active = ? AND is_published = ?", tenantID, true, true).
		Order("sort_order ASC, name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar catálogo: %w", err)
	}

	items := make([]ai.CatalogItem, 0, len(products))
	for _, p := range products {
		items = append(items, ai.CatalogItem{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			ImageURL:    p.FirstImageURL(),
		})
	}

	return ai.NewCatalogSnapshot(tenantID, items), nil
}

// List returns products for the admin API with pagination
func (s *CatalogService) List(tenantID uuid.UUID, page, perPage int) (*models.PaginationResult[models.Product], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := s.db.Model(&models.Product{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	err := s.db.
		Preload("Images").
		Where("tenant_id = ?", tenantID).
		Order("sort_order ASC, name ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &models.PaginationResult[models.Product]{
		Data:       products,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// GetByID returns a product by ID within a tenant
func (s *CatalogService) GetByID(tenantID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.
		Preload("Images").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Create persists a new product
func (s *CatalogService) Create(product *models.Product) error {
	return s.db.Create(product).Error
}

// Update persists product changes
func (s *CatalogService) Update(product *models.Product) error {
	return s.db.Save(product).Error
}
