package services

import (
	"fmt"

	"vendazap/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderService persists orders created by the agent or managed by operators
type OrderService struct {
	db *gorm.DB
}

// NewOrderService creates a new order service
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// CreateOrder persists an order and its items atomically
func (s *OrderService) CreateOrder(order *models.Order, items []models.OrderItem) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("erro ao criar pedido: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("erro ao criar itens do pedido: %w", err)
		}

		order.Items = items
		return nil
	})
}

// GetByID returns an order with items, scoped to a tenant
func (s *OrderService) GetByID(tenantID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.
		Preload("Items").
		Preload("Customer").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns orders for a tenant, newest first
func (s *OrderService) List(tenantID uuid.UUID, page, perPage int) (*models.PaginationResult[models.Order], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := s.db.Model(&models.Order{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []models.Order
	err := s.db.
		Preload("Items").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &models.PaginationResult[models.Order]{
		Data:       orders,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// UpdateStatus advances the order through its lifecycle, enforcing the legal
// transitions (pending→confirmed→preparing→shipped→delivered, with
// cancellation allowed until shipping).
func (s *OrderService) UpdateStatus(tenantID, id uuid.UUID, target string) (*models.Order, error) {
	order, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	if !order.CanTransitionTo(target) {
		return nil, fmt.Errorf("transição de status inválida: %s -> %s", order.Status, target)
	}

	order.Status = target
	if err := s.db.Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}
