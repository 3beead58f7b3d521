package ai

import (
	"context"
	"errors"
	"testing"

	"vendazap/pkg/models"

	"github.com/google/uuid"
)

func baseOrderArgs(cremeID uuid.UUID) CreateOrderArgs {
	return CreateOrderArgs{
		CustomerName:  "Maria Silva",
		CustomerPhone: "(27) 99779-9027",
		ShippingAddress: ShippingAddressArg{
			Street: "Avenida Paulista, 1000",
			City:   "São Paulo",
			State:  "SP",
		},
		Items: []CartEntryArg{
			{ProductID: cremeID.String(), Quantity: 2},
			{Name: "Shampoo Suave", Quantity: 1},
		},
	}
}

func TestFinalizePricesFromCatalogOnly(t *testing.T) {
	tenantID := uuid.New()
	snapshot, cremeID, _ := testSnapshot(tenantID)
	store := newFakeStore(tenantID, models.ModeAI)
	orders := &fakeOrders{}
	customers := &fakeCustomers{existing: map[string]*models.Customer{}}
	f := NewOrderFinalizer(orders, customers, store)
	turn := &TurnContext{TenantID: tenantID, ConversationID: store.conversation.ID, Snapshot: snapshot}

	result, err := f.Finalize(context.Background(), turn, baseOrderArgs(cremeID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2x49.90 + 1x29.90
	if result.Total != "129.70" {
		t.Errorf("total = %s, expected 129.70", result.Total)
	}
	if result.ItemCount != 2 {
		t.Errorf("item count = %d, expected 2", result.ItemCount)
	}
	if result.ConfirmationCode == "" {
		t.Error("missing confirmation code")
	}

	if len(orders.orders) != 1 {
		t.Fatalf("created %d orders, expected 1", len(orders.orders))
	}
	order := orders.orders[0]
	if order.Status != models.OrderPending {
		t.Errorf("status = %s, expected pending", order.Status)
	}
	if order.TotalAmount != "129.70" {
		t.Errorf("order total = %s, expected 129.70", order.TotalAmount)
	}
	items := orders.items[0]
	if items[0].UnitPrice != "49.90" || items[1].UnitPrice != "29.90" {
		t.Errorf("item prices = %s, %s — expected catalog prices", items[0].UnitPrice, items[1].UnitPrice)
	}
}

func TestFinalizeDropsUnmatchedItems(t *testing.T) {
	tenantID := uuid.New()
	snapshot, cremeID, _ := testSnapshot(tenantID)
	store := newFakeStore(tenantID, models.ModeAI)
	orders := &fakeOrders{}
	customers := &fakeCustomers{existing: map[string]*models.Customer{}}
	f := NewOrderFinalizer(orders, customers, store)
	turn := &TurnContext{TenantID: tenantID, ConversationID: store.conversation.ID, Snapshot: snapshot}

	args := baseOrderArgs(cremeID)
	args.Items = append(args.Items, CartEntryArg{Name: "Produto Inventado", Quantity: 5})

	result, err := f.Finalize(context.Background(), turn, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ItemCount != 2 {
		t.Errorf("item count = %d, expected 2 (unmatched excluded)", result.ItemCount)
	}
	if result.Total != "129.70" {
		t.Errorf("total = %s, expected 129.70 (unmatched must not be priced)", result.Total)
	}
}

func TestFinalizeAllItemsUnmatched(t *testing.T) {
	tenantID := uuid.New()
	snapshot, _, _ := testSnapshot(tenantID)
	store := newFakeStore(tenantID, models.ModeAI)
	f := NewOrderFinalizer(&fakeOrders{}, &fakeCustomers{existing: map[string]*models.Customer{}}, store)
	turn := &TurnContext{TenantID: tenantID, ConversationID: store.conversation.ID, Snapshot: snapshot}

	args := CreateOrderArgs{
		CustomerName:    "Maria",
		ShippingAddress: ShippingAddressArg{Street: "Rua X", City: "Vitória", State: "ES"},
		Items:           []CartEntryArg{{Name: "Nada Disso"}},
	}

	if _, err := f.Finalize(context.Background(), turn, args); !errors.Is(err, errEmptyOrder) {
		t.Fatalf("expected errEmptyOrder, got %v", err)
	}
}

func TestFinalizeCustomerUpsert(t *testing.T) {
	tenantID := uuid.New()
	snapshot, cremeID, _ := testSnapshot(tenantID)

	t.Run("telefone existente reutilizado", func(t *testing.T) {
		existing := &models.Customer{
			BaseTenantModel: models.BaseTenantModel{ID: uuid.New(), TenantID: tenantID},
			Phone:           "27997799027",
			TotalOrders:     3,
			TotalSpent:      "100.00",
		}
		store := newFakeStore(tenantID, models.ModeAI)
		orders := &fakeOrders{}
		customers := &fakeCustomers{existing: map[string]*models.Customer{
			"phone:27997799027": existing,
		}}
		f := NewOrderFinalizer(orders, customers, store)
		turn := &TurnContext{TenantID: tenantID, ConversationID: store.conversation.ID, Snapshot: snapshot}

		if _, err := f.Finalize(context.Background(), turn, baseOrderArgs(cremeID)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(customers.created) != 0 {
			t.Errorf("created %d customers, expected 0 (idempotent upsert)", len(customers.created))
		}
		if orders.orders[0].CustomerID == nil || *orders.orders[0].CustomerID != existing.ID {
			t.Error("order not linked to existing customer")
		}
		if store.linkedCustomer != existing.ID {
			t.Error("conversation not linked to existing customer")
		}

		// Estatísticas acumuladas
		if len(customers.updated) != 1 {
			t.Fatalf("updated %d customers, expected 1", len(customers.updated))
		}
		updated := customers.updated[0]
		if updated.TotalOrders != 4 {
			t.Errorf("total orders = %d, expected 4", updated.TotalOrders)
		}
		if updated.TotalSpent != "229.70" {
			t.Errorf("total spent = %s, expected 229.70", updated.TotalSpent)
		}
	})

	t.Run("sem correspondencia cria cliente", func(t *testing.T) {
		store := newFakeStore(tenantID, models.ModeAI)
		orders := &fakeOrders{}
		customers := &fakeCustomers{existing: map[string]*models.Customer{}}
		f := NewOrderFinalizer(orders, customers, store)
		turn := &TurnContext{TenantID: tenantID, ConversationID: store.conversation.ID, Snapshot: snapshot}

		if _, err := f.Finalize(context.Background(), turn, baseOrderArgs(cremeID)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(customers.created) != 1 {
			t.Fatalf("created %d customers, expected 1", len(customers.created))
		}
		if customers.created[0].Phone != "27997799027" {
			t.Errorf("phone = %s, expected digits only", customers.created[0].Phone)
		}
	})

	t.Run("prioridade telefone antes de email", func(t *testing.T) {
		byPhone := &models.Customer{BaseTenantModel: models.BaseTenantModel{ID: uuid.New(), TenantID: tenantID}, Phone: "27997799027"}
		byEmail := &models.Customer{BaseTenantModel: models.BaseTenantModel{ID: uuid.New(), TenantID: tenantID}, Email: "maria@example.com"}
		store := newFakeStore(tenantID, models.ModeAI)
		orders := &fakeOrders{}
		customers := &fakeCustomers{existing: map[string]*models.Customer{
			"phone:27997799027":       byPhone,
			"email:maria@example.com": byEmail,
		}}
		f := NewOrderFinalizer(orders, customers, store)
		turn := &TurnContext{TenantID: tenantID, ConversationID: store.conversation.ID, Snapshot: snapshot}

		args := baseOrderArgs(cremeID)
		args.CustomerEmail = "Maria@Example.com"

		if _, err := f.Finalize(context.Background(), turn, args); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *orders.orders[0].CustomerID != byPhone.ID {
			t.Error("expected phone match to win over email")
		}
	})

	t.Run("falha no upsert nao derruba pedido", func(t *testing.T) {
		store := newFakeStore(tenantID, models.ModeAI)
		orders := &fakeOrders{}
		customers := &fakeCustomers{
			existing:  map[string]*models.Customer{},
			createErr: errors.New("db down"),
		}
		f := NewOrderFinalizer(orders, customers, store)
		turn := &TurnContext{TenantID: tenantID, ConversationID: store.conversation.ID, Snapshot: snapshot}

		result, err := f.Finalize(context.Background(), turn, baseOrderArgs(cremeID))
		if err != nil {
			t.Fatalf("order must survive customer failure, got %v", err)
		}
		if result == nil || len(orders.orders) != 1 {
			t.Fatal("order not created")
		}
		if orders.orders[0].CustomerID != nil {
			t.Error("order should have no customer link after upsert failure")
		}
	})
}
