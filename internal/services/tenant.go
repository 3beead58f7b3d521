package services

import (
	"vendazap/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantService provides tenant access
type TenantService struct {
	db *gorm.DB
}

// NewTenantService creates a new tenant service
func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{db: db}
}

// GetByID returns a tenant by ID
func (s *TenantService) GetByID(id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Update persists tenant changes (agent configuration included)
func (s *TenantService) Update(tenant *models.Tenant) error {
	return s.db.Save(tenant).Error
}
