package services

import (
	"errors"
	"fmt"

	"vendazap/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerService maintains deduplicated buyers per tenant
type CustomerService struct {
	db *gorm.DB
}

// NewCustomerService creates a new customer service
func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{db: db}
}

var identifierColumns = map[string]string{
	"phone": "phone",
	"email": "email",
	"cpf":   "cpf",
	"cnpj":  "cnpj",
}

// FindByIdentifier looks a customer up by a single identification key.
// Returns (nil, nil) when nothing matches — absence is not an error here.
func (s *CustomerService) FindByIdentifier(tenantID uuid.UUID, field, value string) (*models.Customer, error) {
	column, ok := identifierColumns[field]
	if !ok {
		return nil, fmt.Errorf("campo de identificação desconhecido: %s", field)
	}

	var customer models.Customer
	err := s.db.
		Where("tenant_id = ? AND "+column+" = ?", tenantID, value).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Create persists a new customer
func (s *CustomerService) Create(customer *models.Customer) error {
	return s.db.Create(customer).Error
}

// Update persists customer changes
func (s *CustomerService) Update(customer *models.Customer) error {
	return s.db.Save(customer).Error
}

// GetByID returns a customer scoped to a tenant
func (s *CustomerService) GetByID(tenantID, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
