package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"vendazap/pkg/models"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

const analysisJSON = `{"intent":"buying","sentiment":10,"complexity":40,"suggested_agent":"seller"}`

func newTestService(tenantID uuid.UUID, store *fakeStore, chat *fakeChat, cep *fakeCEP) (*AIService, *fakeOrders, *fakeCustomers) {
	snapshot, _, _ := testSnapshot(tenantID)
	orders := &fakeOrders{}
	customers := &fakeCustomers{existing: map[string]*models.Customer{}}

	svc := NewAIService(Deps{
		Client: chat,
		Tenants: &fakeTenants{tenant: &models.Tenant{
			BaseModel:           models.BaseModel{ID: tenantID},
			Name:                "Loja da Maria",
			AIResponseStyle:     "short",
			CatalogExcerptLimit: 30,
		}},
		Catalog:   &fakeCatalog{snapshot: snapshot},
		Store:     store,
		Orders:    orders,
		Customers: customers,
		CEP:       cep,
	})
	return svc, orders, customers
}

func TestPipelineModeGating(t *testing.T) {
	for _, mode := range []string{models.ModeHuman, models.ModeHybrid} {
		t.Run(mode, func(t *testing.T) {
			tenantID := uuid.New()
			store := newFakeStore(tenantID, mode)
			chat := &fakeChat{}
			svc, _, _ := newTestService(tenantID, store, chat, &fakeCEP{})

			result, err := svc.ProcessInboundMessage(context.Background(), InboundMessage{
				TenantID: tenantID,
				Content:  "quero falar sobre meu pedido",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// Mensagem persistida mesmo fora do modo ai
			if len(store.messages) != 1 {
				t.Fatalf("persisted %d messages, expected 1", len(store.messages))
			}
			if result.Reply != nil {
				t.Error("agent must not reply outside ai mode")
			}
			if len(chat.requests) != 0 {
				t.Errorf("model called %d times outside ai mode, expected 0", len(chat.requests))
			}
		})
	}
}

func TestPipelineDirectReply(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore(tenantID, models.ModeAI)
	chat := &fakeChat{responses: []openai.ChatCompletionResponse{
		textResponse(analysisJSON), // analisador
		textResponse("Temos o [Creme Hidratante] por R$ 49,90!"),
	}}
	svc, _, _ := newTestService(tenantID, store, chat, &fakeCEP{})

	result, err := svc.ProcessInboundMessage(context.Background(), InboundMessage{
		TenantID: tenantID,
		Content:  "tem creme hidratante?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Reply == nil || !strings.Contains(result.Reply.Content, "Creme Hidratante") {
		t.Fatalf("unexpected reply: %+v", result.Reply)
	}
	if result.Reply.Role != models.RoleAssistant {
		t.Errorf("reply role = %s, expected assistant", result.Reply.Role)
	}

	// Classificação gravada
	if store.classification == nil || store.classification.Intent != "buying" {
		t.Errorf("classification not stored: %+v", store.classification)
	}

	// Anotação de mídia: produto com imagem citado gera cartão
	if len(result.MediaMessages) != 1 {
		t.Fatalf("expected 1 media message, got %d", len(result.MediaMessages))
	}
	card := result.MediaMessages[0]
	if card.Metadata == nil || card.Metadata.Kind != models.MetaProductCard {
		t.Error("media message missing product card metadata")
	}
	// Cartão carrega nome, preço e descrição no texto
	for _, want := range []string{"Creme Hidratante", "R$ 49,90", "Hidratação profunda"} {
		if !strings.Contains(card.Content, want) {
			t.Errorf("card content missing %q: %s", want, card.Content)
		}
	}

	// Transcrito: user + reply + cartão
	if len(store.messages) != 3 {
		t.Errorf("persisted %d messages, expected 3", len(store.messages))
	}
}

func TestPipelineFallbacks(t *testing.T) {
	t.Run("modelo indisponivel primeira mensagem usa saudacao", func(t *testing.T) {
		tenantID := uuid.New()
		store := newFakeStore(tenantID, models.ModeAI)
		chat := &fakeChat{err: errors.New("api down")}
		svc, _, _ := newTestService(tenantID, store, chat, &fakeCEP{})

		result, err := svc.ProcessInboundMessage(context.Background(), InboundMessage{
			TenantID: tenantID,
			Content:  "oi",
		})
		if err != nil {
			t.Fatalf("pipeline must degrade, got error: %v", err)
		}
		if result.Reply == nil || result.Reply.Content != fallbackGreeting {
			t.Errorf("expected greeting fallback, got %+v", result.Reply)
		}
	})

	t.Run("modelo indisponivel no meio da conversa pede esclarecimento", func(t *testing.T) {
		tenantID := uuid.New()
		store := newFakeStore(tenantID, models.ModeAI)
		store.messages = append(store.messages,
			&models.Message{BaseTenantModel: models.BaseTenantModel{ID: uuid.New(), TenantID: tenantID}, ConversationID: store.conversation.ID, Role: models.RoleUser, Content: "oi"},
			&models.Message{BaseTenantModel: models.BaseTenantModel{ID: uuid.New(), TenantID: tenantID}, ConversationID: store.conversation.ID, Role: models.RoleAssistant, Content: "Olá!"},
		)
		chat := &fakeChat{err: errors.New("api down")}
		svc, _, _ := newTestService(tenantID, store, chat, &fakeCEP{})

		result, err := svc.ProcessInboundMessage(context.Background(), InboundMessage{
			TenantID: tenantID,
			Content:  "quero comprar",
		})
		if err != nil {
			t.Fatalf("pipeline must degrade, got error: %v", err)
		}
		if result.Reply == nil || result.Reply.Content != fallbackClarification {
			t.Errorf("expected clarification fallback, got %+v", result.Reply)
		}
	})
}

func TestPipelineTransferShortCircuit(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore(tenantID, models.ModeAI)
	chat := &fakeChat{responses: []openai.ChatCompletionResponse{
		textResponse(analysisJSON),
		toolCallResponse(ToolTransferToHuman, `{"reason":"cliente pediu atendente"}`),
	}}
	svc, _, _ := newTestService(tenantID, store, chat, &fakeCEP{})

	result, err := svc.ProcessInboundMessage(context.Background(), InboundMessage{
		TenantID: tenantID,
		Content:  "quero falar com uma pessoa",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Transferred {
		t.Error("expected transferred flag")
	}
	if result.Reply == nil || result.Reply.Content != handoffMessage {
		t.Errorf("expected fixed handoff message, got %+v", result.Reply)
	}
	if store.needsHumanReason == "" {
		t.Error("conversation not flagged for human attention")
	}
	// Nenhuma chamada extra ao modelo depois do transfer
	if len(chat.requests) != 2 {
		t.Errorf("model called %d times, expected 2 (analyzer + 1 round)", len(chat.requests))
	}
}

func TestPipelineToolChain(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore(tenantID, models.ModeAI)
	snapshot, cremeID, _ := testSnapshot(tenantID)

	orderArgs := fmt.Sprintf(`{
		"customer_name":"Maria Silva",
		"customer_phone":"27997799027",
		"shipping_address":{"street":"Avenida Paulista, 1000","city":"São Paulo","state":"SP","zipcode":"01310100"},
		"items":[{"product_id":%q,"quantity":2}]
	}`, cremeID)

	chat := &fakeChat{responses: []openai.ChatCompletionResponse{
		textResponse(analysisJSON),
		toolCallResponse(ToolGetAddressByCEP, `{"cep":"01310-100"}`),
		toolCallResponse(ToolCreateOrder, orderArgs),
		textResponse("Pedido confirmado! 🎉"),
	}}
	cep := &fakeCEP{addresses: map[string]*CEPAddress{
		"01310100": {CEP: "01310100", Street: "Avenida Paulista", City: "São Paulo", State: "SP"},
	}}

	orders := &fakeOrders{}
	customers := &fakeCustomers{existing: map[string]*models.Customer{}}
	svc := NewAIService(Deps{
		Client:    chat,
		Tenants:   &fakeTenants{tenant: &models.Tenant{Name: "Loja da Maria", CatalogExcerptLimit: 30}},
		Catalog:   &fakeCatalog{snapshot: snapshot},
		Store:     store,
		Orders:    orders,
		Customers: customers,
		CEP:       cep,
	})

	result, err := svc.ProcessInboundMessage(context.Background(), InboundMessage{
		TenantID: tenantID,
		Content:  "pode fechar o pedido, meu CEP é 01310-100",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Reply == nil || !strings.Contains(result.Reply.Content, "Pedido confirmado") {
		t.Fatalf("unexpected reply: %+v", result.Reply)
	}

	// Pedido criado com preço do catálogo
	if len(orders.orders) != 1 {
		t.Fatalf("created %d orders, expected 1", len(orders.orders))
	}
	if orders.orders[0].TotalAmount != "99.80" {
		t.Errorf("order total = %s, expected 99.80", orders.orders[0].TotalAmount)
	}

	// Metadata final é a confirmação do pedido, não o CEP
	if result.Reply.Metadata == nil || result.Reply.Metadata.Kind != models.MetaOrderConfirmation {
		t.Fatalf("reply metadata = %+v, expected order confirmation", result.Reply.Metadata)
	}
	if result.Reply.Metadata.Order.Total != "99.80" {
		t.Errorf("confirmation total = %s, expected 99.80", result.Reply.Metadata.Order.Total)
	}

	// Resultado do tool volta para o modelo como mensagem de tool
	lastReq := chat.requests[len(chat.requests)-1]
	foundToolMsg := false
	for _, m := range lastReq.Messages {
		if m.Role == openai.ChatMessageRoleTool && strings.Contains(m.Content, "order_id") {
			foundToolMsg = true
		}
	}
	if !foundToolMsg {
		t.Error("order tool result not fed back to the model")
	}
}

func TestPipelineToolRoundLimit(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore(tenantID, models.ModeAI)

	// Modelo insiste em tools para sempre
	loop := toolCallResponse(ToolAddToCart, `{"items":[{"name":"Creme Hidratante"}]}`)
	chat := &fakeChat{responses: []openai.ChatCompletionResponse{
		textResponse(analysisJSON),
		loop, loop, loop, loop, loop,
	}}
	svc, _, _ := newTestService(tenantID, store, chat, &fakeCEP{})

	result, err := svc.ProcessInboundMessage(context.Background(), InboundMessage{
		TenantID: tenantID,
		Content:  "adiciona o creme",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1 análise + maxToolRounds rodadas, nunca mais que isso
	if len(chat.requests) != 1+maxToolRounds {
		t.Errorf("model called %d times, expected %d", len(chat.requests), 1+maxToolRounds)
	}
	// Sem texto do modelo, resposta determinística
	if result.Reply == nil || result.Reply.Content == "" {
		t.Fatal("expected deterministic fallback reply")
	}
}

func TestPipelineAudioPlaceholder(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore(tenantID, models.ModeHuman) // evita o resto do pipeline
	chat := &fakeChat{}
	svc, _, _ := newTestService(tenantID, store, chat, &fakeCEP{})

	// Sem transcriber configurado o áudio degrada para placeholder
	result, err := svc.ProcessInboundMessage(context.Background(), InboundMessage{
		TenantID: tenantID,
		AudioURL: "https://cdn.example.com/voice.ogg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UserMessage.Content != audioPlaceholder {
		t.Errorf("content = %q, expected placeholder", result.UserMessage.Content)
	}
}

func TestPipelineHistoryWindow(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore(tenantID, models.ModeAI)

	// 12 turnos anteriores: só os últimos 10 devem entrar, mais o atual
	for i := 0; i < 12; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		store.messages = append(store.messages, &models.Message{
			BaseTenantModel: models.BaseTenantModel{ID: uuid.New(), TenantID: tenantID},
			ConversationID:  store.conversation.ID,
			Role:            role,
			Content:         fmt.Sprintf("turno %d", i),
		})
	}

	chat := &fakeChat{responses: []openai.ChatCompletionResponse{
		textResponse(analysisJSON),
		textResponse("Certo!"),
	}}
	svc, _, _ := newTestService(tenantID, store, chat, &fakeCEP{})

	if _, err := svc.ProcessInboundMessage(context.Background(), InboundMessage{
		TenantID: tenantID,
		Content:  "mensagem atual",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dialogueReq := chat.requests[1]
	// system + 10 turnos anteriores + turno atual
	if len(dialogueReq.Messages) != 12 {
		t.Fatalf("dialogue got %d messages, expected 12", len(dialogueReq.Messages))
	}
	if dialogueReq.Messages[1].Content != "turno 2" {
		t.Errorf("oldest windowed turn = %q, expected \"turno 2\"", dialogueReq.Messages[1].Content)
	}
	last := dialogueReq.Messages[len(dialogueReq.Messages)-1]
	if last.Content != "mensagem atual" {
		t.Errorf("last message = %q, expected the current turn", last.Content)
	}
}

func TestBuildChatHistory(t *testing.T) {
	convID := uuid.New()
	mk := func(role, content string, meta *models.MessageMetadata) models.Message {
		return models.Message{ConversationID: convID, Role: role, Content: content, Metadata: meta}
	}

	history := []models.Message{
		mk(models.RoleUser, "oi", nil),
		mk(models.RoleAssistant, "Olá!", nil),
		mk(models.RoleAssistant, "📷 Creme", &models.MessageMetadata{Kind: models.MetaProductCard}),
		mk(models.RoleOperator, "aqui é o atendente", nil),
		mk(models.RoleUser, "olha essa foto", &models.MessageMetadata{
			Kind:  models.MetaImage,
			Image: &models.ImageAttachment{URL: "https://cdn.example.com/foto.jpg"},
		}),
	}

	out := buildChatHistory(history, 10)

	// Cartões de produto ficam fora do contexto do modelo
	if len(out) != 4 {
		t.Fatalf("history has %d messages, expected 4", len(out))
	}

	// Operador vira assistant para o modelo
	if out[2].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("operator role = %s, expected assistant", out[2].Role)
	}

	// Imagem vira conteúdo multimodal
	last := out[3]
	if len(last.MultiContent) != 2 {
		t.Fatalf("image turn has %d parts, expected 2", len(last.MultiContent))
	}
	if last.MultiContent[1].Type != openai.ChatMessagePartTypeImageURL {
		t.Error("second part is not an image URL")
	}
}
