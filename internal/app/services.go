package app

import (
	"os"

	"vendazap/internal/ai"
	"vendazap/internal/auth"
	"vendazap/internal/services"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"gorm.io/gorm"
)

// Services holds all application services
type Services struct {
	DB *gorm.DB

	AuthService       *auth.Service
	UserRepo          *services.UserRepository
	TenantService     *services.TenantService
	CatalogService    *services.CatalogService
	ConversationStore *services.ConversationStore
	OrderService      *services.OrderService
	CustomerService   *services.CustomerService
	CEPService        *services.CEPService
	StorageService    *services.StorageService
	EmbeddingService  *services.EmbeddingService

	AIService *ai.AIService
}

// NewServices creates a new services container
func NewServices(db *gorm.DB) *Services {
	userRepo := services.NewUserRepository(db)
	authService := auth.NewService(userRepo)

	tenantService := services.NewTenantService(db)
	catalogService := services.NewCatalogService(db)
	conversationStore := services.NewConversationStore(db)
	orderService := services.NewOrderService(db)
	customerService := services.NewCustomerService(db)
	cepService := services.NewCEPService()

	// Storage é opcional: sem configuração S3 as imagens ficam nas URLs originais
	storageService, err := services.NewStorageService()
	if err != nil {
		log.Warn().Err(err).Msg("Storage S3 não configurado, mídia não será re-hospedada")
		storageService = nil
	}

	// Busca semântica é opcional: sem Qdrant o prompt segue sem contexto relacionado
	var embeddingService *services.EmbeddingService
	openaiAPIKey := os.Getenv("OPENAI_API_KEY")
	qdrantURL := os.Getenv("QDRANT_URL")
	if qdrantURL == "" {
		qdrantURL = "localhost:6334"
	}
	if openaiAPIKey != "" && os.Getenv("ENABLE_SEMANTIC_SEARCH") == "true" {
		embeddingService, err = services.NewEmbeddingService(openaiAPIKey, qdrantURL, os.Getenv("QDRANT_API_KEY"))
		if err != nil {
			log.Warn().Err(err).Msg("Falha ao inicializar busca semântica, seguindo sem ela")
			embeddingService = nil
		} else {
			log.Info().Str("qdrant_url", qdrantURL).Msg("✅ Busca semântica habilitada")
		}
	}

	openaiClient := openai.NewClient(openaiAPIKey)

	deps := ai.Deps{
		Client:      openaiClient,
		Model:       os.Getenv("OPENAI_MODEL"),
		Tenants:     tenantService,
		Catalog:     catalogService,
		Store:       conversationStore,
		Orders:      orderService,
		Customers:   customerService,
		CEP:         cepService,
		Transcriber: ai.NewTranscriber(openaiClient),
	}
	if storageService != nil {
		deps.Storage = storageService
	}
	if embeddingService != nil {
		deps.Embeddings = embeddingService
	}

	return &Services{
		DB:                db,
		AuthService:       authService,
		UserRepo:          userRepo,
		TenantService:     tenantService,
		CatalogService:    catalogService,
		ConversationStore: conversationStore,
		OrderService:      orderService,
		CustomerService:   customerService,
		CEPService:        cepService,
		StorageService:    storageService,
		EmbeddingService:  embeddingService,
		AIService:         ai.NewAIService(deps),
	}
}
