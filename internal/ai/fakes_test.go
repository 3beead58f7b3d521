package ai

import (
	"context"
	"fmt"

	"vendazap/pkg/models"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// fakeChat plays back scripted completions and records every request.
type fakeChat struct {
	responses []openai.ChatCompletionResponse
	err       error
	requests  []openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if len(f.responses) == 0 {
		return openai.ChatCompletionResponse{}, fmt.Errorf("fakeChat: no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			}},
		},
	}
}

func toolCallResponse(name, arguments string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{
					{
						ID:   "call_" + name,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      name,
							Arguments: arguments,
						},
					},
				},
			}},
		},
	}
}

// fakeStore is an in-memory ConversationStoreInterface.
type fakeStore struct {
	conversation *models.Conversation
	messages     []*models.Message

	needsHumanReason string
	classification   *Analysis
	linkedCustomer   uuid.UUID
	appendErr        error
}

func newFakeStore(tenantID uuid.UUID, mode string) *fakeStore {
	return &fakeStore{
		conversation: &models.Conversation{
			BaseTenantModel: models.BaseTenantModel{ID: uuid.New(), TenantID: tenantID},
			Channel:         models.ChannelChatWeb,
			Mode:            mode,
			Status:          models.ConversationActive,
		},
	}
}

func (f *fakeStore) GetOrCreate(tenantID, conversationID uuid.UUID, channel string) (*models.Conversation, error) {
	return f.conversation, nil
}

func (f *fakeStore) AppendMessage(msg *models.Message) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeStore) ListRecentMessages(tenantID, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	out := make([]models.Message, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, *m)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeStore) UpdateClassification(tenantID, conversationID uuid.UUID, analysis Analysis) error {
	f.classification = &analysis
	return nil
}

func (f *fakeStore) MarkNeedsHuman(tenantID, conversationID uuid.UUID, reason string) error {
	f.needsHumanReason = reason
	return nil
}

func (f *fakeStore) LinkCustomer(tenantID, conversationID, customerID uuid.UUID) error {
	f.linkedCustomer = customerID
	return nil
}

// fakeTenants serves a single tenant.
type fakeTenants struct {
	tenant *models.Tenant
}

func (f *fakeTenants) GetByID(id uuid.UUID) (*models.Tenant, error) {
	return f.tenant, nil
}

// fakeCatalog serves a fixed snapshot.
type fakeCatalog struct {
	snapshot *CatalogSnapshot
}

func (f *fakeCatalog) Snapshot(tenantID uuid.UUID) (*CatalogSnapshot, error) {
	return f.snapshot, nil
}

// fakeOrders records created orders.
type fakeOrders struct {
	orders []*models.Order
	items  [][]models.OrderItem
	err    error
}

func (f *fakeOrders) CreateOrder(order *models.Order, items []models.OrderItem) error {
	if f.err != nil {
		return f.err
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders = append(f.orders, order)
	f.items = append(f.items, items)
	return nil
}

// fakeCustomers is an in-memory CustomerServiceInterface keyed by
// field/value pairs.
type fakeCustomers struct {
	existing  map[string]*models.Customer // "field:value"
	created   []*models.Customer
	updated   []*models.Customer
	findErr   error
	createErr error
}

func (f *fakeCustomers) FindByIdentifier(tenantID uuid.UUID, field, value string) (*models.Customer, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.existing[field+":"+value], nil
}

func (f *fakeCustomers) Create(customer *models.Customer) error {
	if f.createErr != nil {
		return f.createErr
	}
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	f.created = append(f.created, customer)
	return nil
}

func (f *fakeCustomers) Update(customer *models.Customer) error {
	f.updated = append(f.updated, customer)
	return nil
}

// fakeCEP resolves from a fixed map.
type fakeCEP struct {
	addresses map[string]*CEPAddress
	err       error
	calls     []string
}

func (f *fakeCEP) Lookup(ctx context.Context, cep string) (*CEPAddress, error) {
	f.calls = append(f.calls, cep)
	if f.err != nil {
		return nil, f.err
	}
	if addr, ok := f.addresses[cep]; ok {
		return addr, nil
	}
	return nil, ErrCEPNotFound
}

// testSnapshot builds a small catalog used across the tests.
func testSnapshot(tenantID uuid.UUID) (*CatalogSnapshot, uuid.UUID, uuid.UUID) {
	cremeID := uuid.New()
	shampooID := uuid.New()
	items := []CatalogItem{
		{ID: cremeID, Name: "Creme Hidratante", Description: "Hidratação profunda", Price: "49.90", ImageURL: "https://cdn.example.com/creme.jpg"},
		{ID: shampooID, Name: "Shampoo Suave", Description: "Uso diário", Price: "29.90", ImageURL: ""},
		{ID: uuid.New(), Name: "Perfume Floral", Description: "Fragrância leve", Price: "149.00", ImageURL: "https://cdn.example.com/perfume.jpg"},
	}
	return NewCatalogSnapshot(tenantID, items), cremeID, shampooID
}
