package ai

import (
	"context"
	"fmt"
	"strings"

	"vendazap/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// maxToolRounds bounds the dialogue loop. Three rounds cover the longest
// legitimate chain (cep → order → confirmation text); past that the model is
// looping and the turn falls back to a deterministic reply.
const maxToolRounds = 3

// historyWindow is how many prior turns the model sees, not counting the
// turn being answered.
const historyWindow = 10

// Fixed replies. The hand-off text is deliberately not model-generated so a
// transfer always reads the same.
const (
	handoffMessage        = "👋 Entendi! Estou transferindo você para um de nossos atendentes. Aguarde só um instante que logo alguém continua seu atendimento por aqui."
	fallbackGreeting      = "Olá! 👋 Bem-vindo(a)! Como posso ajudar você hoje?"
	fallbackClarification = "Desculpe, não consegui entender direito. Pode me explicar de outra forma como posso ajudar? 😊"
	audioPlaceholder      = "[áudio recebido]"
)

// ChatCompleter is the slice of the OpenAI client the engine depends on.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CEPAddress is a resolved Brazilian postal address.
type CEPAddress struct {
	CEP          string
	Street       string
	Neighborhood string
	City         string
	State        string
}

// Interfaces para injeção de dependência

// TenantServiceInterface loads tenant agent configuration.
type TenantServiceInterface interface {
	GetByID(id uuid.UUID) (*models.Tenant, error)
}

// CatalogServiceInterface freezes the sellable catalog for a turn.
type CatalogServiceInterface interface {
	Snapshot(tenantID uuid.UUID) (*CatalogSnapshot, error)
}

// ConversationStoreInterface persists conversations and their immutable
// message log.
type ConversationStoreInterface interface {
	GetOrCreate(tenantID, conversationID uuid.UUID, channel string) (*models.Conversation, error)
	AppendMessage(msg *models.Message) error
	ListRecentMessages(tenantID, conversationID uuid.UUID, limit int) ([]models.Message, error)
	UpdateClassification(tenantID, conversationID uuid.UUID, analysis Analysis) error
	MarkNeedsHuman(tenantID, conversationID uuid.UUID, reason string) error
	LinkCustomer(tenantID, conversationID, customerID uuid.UUID) error
}

// OrderServiceInterface persists finalized orders.
type OrderServiceInterface interface {
	CreateOrder(order *models.Order, items []models.OrderItem) error
}

// CustomerServiceInterface deduplicates and maintains buyers.
type CustomerServiceInterface interface {
	FindByIdentifier(tenantID uuid.UUID, field, value string) (*models.Customer, error)
	Create(customer *models.Customer) error
	Update(customer *models.Customer) error
}

// CEPServiceInterface resolves Brazilian postal codes. Implementations
// return ErrCEPNotFound for well-formed but unknown codes.
type CEPServiceInterface interface {
	Lookup(ctx context.Context, cep string) (*CEPAddress, error)
}

// MediaStorageInterface re-hosts customer media on our own storage.
type MediaStorageInterface interface {
	RehostImage(ctx context.Context, sourceURL string, tenantID, messageID uuid.UUID) (url string, s3Key string, err error)
}

// EmbeddingSearchInterface retrieves semantically related products for the
// prompt. Optional: a nil implementation disables the section.
type EmbeddingSearchInterface interface {
	RelatedProducts(ctx context.Context, tenantID uuid.UUID, query string, limit int) (string, error)
}

// AIService orchestrates the whole inbound pipeline: persist, classify,
// compile, converse, dispatch tools, annotate.
type AIService struct {
	client     ChatCompleter
	model      string
	tenants    TenantServiceInterface
	catalog    CatalogServiceInterface
	store      ConversationStoreInterface
	dispatcher *Dispatcher
	analyzer   *Analyzer

	// Opcionais
	transcriber *Transcriber
	storage     MediaStorageInterface
	embeddings  EmbeddingSearchInterface
}

// Deps wires the AIService collaborators.
type Deps struct {
	Client    ChatCompleter
	Model     string
	Tenants   TenantServiceInterface
	Catalog   CatalogServiceInterface
	Store     ConversationStoreInterface
	Orders    OrderServiceInterface
	Customers CustomerServiceInterface
	CEP       CEPServiceInterface

	Transcriber *Transcriber
	Storage     MediaStorageInterface
	Embeddings  EmbeddingSearchInterface
}

// NewAIService creates the orchestration service.
func NewAIService(d Deps) *AIService {
	model := d.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	finalizer := NewOrderFinalizer(d.Orders, d.Customers, d.Store)

	return &AIService{
		client:      d.Client,
		model:       model,
		tenants:     d.Tenants,
		catalog:     d.Catalog,
		store:       d.Store,
		dispatcher:  NewDispatcher(d.CEP, finalizer, d.Store),
		analyzer:    NewAnalyzer(d.Client, model),
		transcriber: d.Transcriber,
		storage:     d.Storage,
		embeddings:  d.Embeddings,
	}
}

// InboundMessage is one customer message entering the pipeline.
type InboundMessage struct {
	TenantID       uuid.UUID
	ConversationID uuid.UUID // uuid.Nil abre uma conversa nova
	Channel        string
	Content        string
	ImageURL       string
	AudioURL       string
}

// PipelineResult is everything the turn produced.
type PipelineResult struct {
	Conversation  *models.Conversation `json:"conversation"`
	UserMessage   *models.Message      `json:"user_message"`
	Reply         *models.Message      `json:"reply,omitempty"`
	MediaMessages []*models.Message    `json:"media_messages,omitempty"`
	Transferred   bool                 `json:"transferred"`
}

// ProcessInboundMessage runs the full turn. Inbound persistence always
// happens; the virtual agent only runs when the conversation mode is ai.
func (s *AIService) ProcessInboundMessage(ctx context.Context, in InboundMessage) (*PipelineResult, error) {
	conversation, err := s.store.GetOrCreate(in.TenantID, in.ConversationID, in.Channel)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar conversa: %w", err)
	}

	userMsg, err := s.persistUserMessage(ctx, conversation, in)
	if err != nil {
		return nil, err
	}

	result := &PipelineResult{
		Conversation: conversation,
		UserMessage:  userMsg,
	}

	// Gate único do pipeline: fora do modo ai a mensagem fica registrada
	// para o operador e nada mais acontece.
	if conversation.Mode != models.ModeAI {
		log.Debug().
			Str("conversation_id", conversation.ID.String()).
			Str("mode", conversation.Mode).
			Msg("Conversa fora do modo ai, agente não acionado")
		return result, nil
	}

	tenant, err := s.tenants.GetByID(in.TenantID)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar tenant: %w", err)
	}

	snapshot, err := s.catalog.Snapshot(in.TenantID)
	if err != nil {
		log.Error().Err(err).Msg("Falha ao congelar catálogo, seguindo com catálogo vazio")
		snapshot = NewCatalogSnapshot(in.TenantID, nil)
	}

	history, err := s.store.ListRecentMessages(in.TenantID, conversation.ID, historyWindow+1)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar histórico: %w", err)
	}
	hasHistory := len(history) > 1 // além da mensagem recém-persistida

	analysis := s.analyzer.Analyze(ctx, history)
	if err := s.store.UpdateClassification(in.TenantID, conversation.ID, analysis); err != nil {
		log.Warn().Err(err).Msg("Falha ao gravar classificação da conversa")
	}
	conversation.CurrentIntent = analysis.Intent
	conversation.SentimentScore = analysis.Sentiment
	conversation.ComplexityScore = analysis.Complexity
	conversation.ActiveAgentType = SelectSpecialist(analysis.SuggestedAgent).Key

	systemPrompt := CompileSystemPrompt(PromptInput{
		Tenant:          tenant,
		Specialist:      SelectSpecialist(analysis.SuggestedAgent),
		Analysis:        analysis,
		Snapshot:        snapshot,
		HasHistory:      hasHistory,
		RelatedProducts: s.relatedProducts(ctx, in.TenantID, userMsg.Content),
	})

	turn := &TurnContext{
		TenantID:       in.TenantID,
		ConversationID: conversation.ID,
		Snapshot:       snapshot,
	}

	// O modelo vê os últimos historyWindow turnos anteriores mais o turno
	// atual, que é o último elemento de history.
	reply, transferred, err := s.runDialogue(ctx, turn, systemPrompt, buildChatHistory(history, historyWindow+1))
	if err != nil {
		log.Error().Err(err).
			Str("conversation_id", conversation.ID.String()).
			Msg("Falha na conversa com o modelo, usando resposta determinística")
		reply = ""
	}
	if reply == "" {
		if hasHistory {
			reply = fallbackClarification
		} else if tenant.AIWelcomeMessage != "" {
			reply = tenant.AIWelcomeMessage
		} else {
			reply = fallbackGreeting
		}
	}

	replyMsg := &models.Message{
		BaseTenantModel: models.BaseTenantModel{TenantID: in.TenantID},
		ConversationID:  conversation.ID,
		Role:            models.RoleAssistant,
		Content:         reply,
		Metadata:        turn.ReplyMetadata,
	}
	if err := s.store.AppendMessage(replyMsg); err != nil {
		return nil, fmt.Errorf("erro ao persistir resposta: %w", err)
	}

	result.Reply = replyMsg
	result.Transferred = transferred
	if transferred {
		conversation.Mode = models.ModeHybrid
		conversation.NeedsHumanAttention = true
	}

	// Anotação de mídia roda depois da resposta principal
	for _, card := range AnnotateMediaReferences(reply, snapshot) {
		c := card
		mediaMsg := &models.Message{
			BaseTenantModel: models.BaseTenantModel{TenantID: in.TenantID},
			ConversationID:  conversation.ID,
			Role:            models.RoleAssistant,
			Content:         productCardContent(c),
			Metadata: &models.MessageMetadata{
				Kind:        models.MetaProductCard,
				ProductCard: &c,
			},
		}
		if err := s.store.AppendMessage(mediaMsg); err != nil {
			log.Warn().Err(err).Str("product", c.Name).Msg("Falha ao persistir cartão de produto")
			continue
		}
		result.MediaMessages = append(result.MediaMessages, mediaMsg)
	}

	return result, nil
}

// persistUserMessage resolves media (transcription, re-hosting) and appends
// the customer turn. Media failures degrade, they never drop the message.
func (s *AIService) persistUserMessage(ctx context.Context, conversation *models.Conversation, in InboundMessage) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)

	if in.AudioURL != "" {
		if s.transcriber != nil {
			text, err := s.transcriber.Transcribe(ctx, in.AudioURL)
			if err != nil {
				log.Warn().Err(err).Msg("Transcrição falhou, mensagem segue como áudio")
			} else if text != "" {
				if content == "" {
					content = text
				} else {
					content = content + "\n" + text
				}
			}
		}
		if content == "" {
			content = audioPlaceholder
		}
	}

	msg := &models.Message{
		BaseTenantModel: models.BaseTenantModel{TenantID: in.TenantID},
		ConversationID:  conversation.ID,
		Role:            models.RoleUser,
		Content:         content,
	}

	if in.ImageURL != "" {
		msg.ID = uuid.New()
		url := in.ImageURL
		var s3Key string
		if s.storage != nil {
			hosted, key, err := s.storage.RehostImage(ctx, in.ImageURL, in.TenantID, msg.ID)
			if err != nil {
				log.Warn().Err(err).Msg("Re-hospedagem da imagem falhou, mantendo URL original")
			} else {
				url, s3Key = hosted, key
			}
		}
		msg.Metadata = &models.MessageMetadata{
			Kind:  models.MetaImage,
			Image: &models.ImageAttachment{URL: url, S3Key: s3Key},
		}
	}

	if err := s.store.AppendMessage(msg); err != nil {
		return nil, fmt.Errorf("erro ao persistir mensagem do cliente: %w", err)
	}
	return msg, nil
}

// runDialogue drives the tool loop. A transfer_to_human call short-circuits
// with the fixed hand-off reply; exhausting the round budget returns empty
// so the caller applies the deterministic fallback.
func (s *AIService) runDialogue(ctx context.Context, turn *TurnContext, systemPrompt string, history []openai.ChatCompletionMessage) (string, bool, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	messages = append(messages, history...)

	for round := 0; round < maxToolRounds; round++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:               s.model,
			Messages:            messages,
			Tools:               getAvailableTools(),
			ToolChoice:          "auto",
			MaxCompletionTokens: 2000,
		})
		if err != nil {
			return "", false, fmt.Errorf("erro na chamada do modelo: %w", err)
		}
		if len(resp.Choices) == 0 {
			break
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return strings.TrimSpace(msg.Content), false, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			result := s.dispatcher.Execute(ctx, turn, call)

			if call.Function.Name == ToolTransferToHuman && result.OK {
				return handoffMessage, true, nil
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result.JSON(),
				ToolCallID: call.ID,
			})
		}
	}

	log.Warn().
		Str("conversation_id", turn.ConversationID.String()).
		Int("rounds", maxToolRounds).
		Msg("Limite de rodadas de tools atingido sem resposta textual")
	return "", false, nil
}

// buildChatHistory converts persisted turns into chat messages. Operator
// turns count as assistant turns for the model; product cards are media
// artifacts and stay out; image turns become multimodal parts.
func buildChatHistory(history []models.Message, window int) []openai.ChatCompletionMessage {
	filtered := make([]models.Message, 0, len(history))
	for _, m := range history {
		if m.Metadata != nil && m.Metadata.Kind == models.MetaProductCard {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) > window {
		filtered = filtered[len(filtered)-window:]
	}

	out := make([]openai.ChatCompletionMessage, 0, len(filtered))
	for _, m := range filtered {
		role := openai.ChatMessageRoleAssistant
		if m.Role == models.RoleUser {
			role = openai.ChatMessageRoleUser
		}

		if m.Role == models.RoleUser && m.Metadata != nil && m.Metadata.Kind == models.MetaImage && m.Metadata.Image != nil {
			parts := []openai.ChatMessagePart{}
			if m.Content != "" {
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: m.Content,
				})
			}
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    m.Metadata.Image.URL,
					Detail: openai.ImageURLDetailAuto,
				},
			})
			out = append(out, openai.ChatCompletionMessage{
				Role:         role,
				MultiContent: parts,
			})
			continue
		}

		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	return out
}

// relatedProducts asks the embedding index for products close to the
// customer message. Best-effort: failures just drop the prompt section.
func (s *AIService) relatedProducts(ctx context.Context, tenantID uuid.UUID, query string) string {
	if s.embeddings == nil || strings.TrimSpace(query) == "" {
		return ""
	}
	related, err := s.embeddings.RelatedProducts(ctx, tenantID, query, 5)
	if err != nil {
		log.Debug().Err(err).Msg("Busca semântica indisponível")
		return ""
	}
	return related
}
