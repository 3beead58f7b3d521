package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vendazap/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var errEmptyOrder = errors.New("pedido sem itens válidos")

// OrderFinalizer turns a confirmed checkout into a persisted order. It is
// the only component allowed to price items, and it prices exclusively from
// the turn's catalog snapshot.
type OrderFinalizer struct {
	orders    OrderServiceInterface
	customers CustomerServiceInterface
	store     ConversationStoreInterface
}

// NewOrderFinalizer creates an order finalizer.
func NewOrderFinalizer(orders OrderServiceInterface, customers CustomerServiceInterface, store ConversationStoreInterface) *OrderFinalizer {
	return &OrderFinalizer{orders: orders, customers: customers, store: store}
}

// Finalize re-resolves every item against the snapshot, drops what does not
// match, recomputes the total from snapshot prices and creates the order as
// pending. Customer upsert and conversation linking are best-effort: their
// failure never fails the order.
func (f *OrderFinalizer) Finalize(ctx context.Context, turn *TurnContext, args CreateOrderArgs) (*OrderResult, error) {
	items, dropped := resolveCartEntries(turn.Snapshot, args.Items)
	if len(items) == 0 {
		return nil, errEmptyOrder
	}
	if len(dropped) > 0 {
		log.Warn().
			Strs("dropped", dropped).
			Str("conversation_id", turn.ConversationID.String()).
			Msg("Itens fora do catálogo excluídos do pedido")
	}

	total := 0.0
	for _, it := range items {
		total += parsePrice(it.UnitPrice) * float64(it.Quantity)
	}

	customer := f.upsertCustomer(turn.TenantID, args)

	order := &models.Order{
		BaseTenantModel:  models.BaseTenantModel{TenantID: turn.TenantID},
		ConversationID:   &turn.ConversationID,
		ConfirmationCode: generateConfirmationCode(),
		Status:           models.OrderPending,
		TotalAmount:      formatAmount(total),
		Currency:         "BRL",
		PaymentMethod:    args.PaymentMethod,
		CustomerName:     optional(args.CustomerName),
		CustomerPhone:    optional(digitsOnly(args.CustomerPhone)),

		ShippingStreet:       optional(args.ShippingAddress.Street),
		ShippingComplement:   optional(args.ShippingAddress.Complement),
		ShippingNeighborhood: optional(args.ShippingAddress.Neighborhood),
		ShippingCity:         optional(args.ShippingAddress.City),
		ShippingState:        optional(args.ShippingAddress.State),
		ShippingZipcode:      optional(normalizeCEP(args.ShippingAddress.Zipcode)),
	}
	if customer != nil {
		order.CustomerID = &customer.ID
	}

	orderItems := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		name := it.Name
		productID := it.ProductID
		orderItems = append(orderItems, models.OrderItem{
			BaseTenantModel: models.BaseTenantModel{TenantID: turn.TenantID},
			ProductID:       &productID,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			Total:           formatAmount(parsePrice(it.UnitPrice) * float64(it.Quantity)),
			ProductName:     &name,
		})
	}

	if err := f.orders.CreateOrder(order, orderItems); err != nil {
		return nil, fmt.Errorf("erro ao criar pedido: %w", err)
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("confirmation_code", order.ConfirmationCode).
		Str("total", order.TotalAmount).
		Int("items", len(orderItems)).
		Msg("✅ Pedido criado pelo agente")

	// Pós-criação best-effort: estatísticas do cliente e vínculo da conversa
	if customer != nil {
		f.accumulateStats(customer, total)
		if err := f.store.LinkCustomer(turn.TenantID, turn.ConversationID, customer.ID); err != nil {
			log.Warn().Err(err).
				Str("conversation_id", turn.ConversationID.String()).
				Msg("Falha ao vincular cliente à conversa")
		}
	}

	return &OrderResult{
		OrderID:          order.ID,
		ConfirmationCode: order.ConfirmationCode,
		Total:            order.TotalAmount,
		ItemCount:        len(orderItems),
	}, nil
}

// upsertCustomer deduplicates the buyer by identification priority: phone,
// email, CPF, CNPJ — the first non-empty key that matches wins. No match
// creates a new customer. Any failure returns nil and the order proceeds
// without a customer link.
func (f *OrderFinalizer) upsertCustomer(tenantID uuid.UUID, args CreateOrderArgs) *models.Customer {
	keys := []struct {
		field string
		value string
	}{
		{"phone", digitsOnly(args.CustomerPhone)},
		{"email", strings.ToLower(strings.TrimSpace(args.CustomerEmail))},
		{"cpf", digitsOnly(args.CustomerCPF)},
		{"cnpj", digitsOnly(args.CustomerCNPJ)},
	}

	for _, k := range keys {
		if k.value == "" {
			continue
		}
		customer, err := f.customers.FindByIdentifier(tenantID, k.field, k.value)
		if err != nil {
			log.Warn().Err(err).Str("field", k.field).Msg("Falha ao buscar cliente, pedido segue sem vínculo")
			return nil
		}
		if customer != nil {
			return customer
		}
	}

	customer := &models.Customer{
		BaseTenantModel: models.BaseTenantModel{TenantID: tenantID},
		Name:            strings.TrimSpace(args.CustomerName),
		Phone:           digitsOnly(args.CustomerPhone),
		Email:           strings.ToLower(strings.TrimSpace(args.CustomerEmail)),
		CPF:             digitsOnly(args.CustomerCPF),
		CNPJ:            digitsOnly(args.CustomerCNPJ),
		IsActive:        true,
	}
	if err := f.customers.Create(customer); err != nil {
		log.Warn().Err(err).Msg("Falha ao criar cliente, pedido segue sem vínculo")
		return nil
	}
	return customer
}

func (f *OrderFinalizer) accumulateStats(customer *models.Customer, orderTotal float64) {
	now := time.Now()
	customer.TotalOrders++
	customer.TotalSpent = formatAmount(parsePrice(customer.TotalSpent) + orderTotal)
	customer.LastOrderAt = &now
	if err := f.customers.Update(customer); err != nil {
		log.Warn().Err(err).
			Str("customer_id", customer.ID.String()).
			Msg("Falha ao atualizar estatísticas do cliente")
	}
}

// generateConfirmationCode produces the short human-readable code quoted in
// the confirmation message.
func generateConfirmationCode() string {
	return fmt.Sprintf("VND%d", uuid.New().ID())
}

func digitsOnly(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
