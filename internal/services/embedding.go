package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vendazap/pkg/models"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// bearerAuth implements credentials.PerRPCCredentials for Qdrant API keys
type bearerAuth struct {
	token string
}

func (b *bearerAuth) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{
		"authorization": "Bearer " + b.token,
	}, nil
}

func (b *bearerAuth) RequireTransportSecurity() bool {
	return false
}

// EmbeddingService keeps a per-tenant product vector index in Qdrant and
// answers semantic queries for the prompt compiler.
type EmbeddingService struct {
	openaiClient *openai.Client
	collections  qdrant.CollectionsClient
	points       qdrant.PointsClient
	conn         *grpc.ClientConn
}

// NewEmbeddingService connects to Qdrant and prepares the OpenAI embedding
// client. Collections are created lazily per tenant.
func NewEmbeddingService(openaiAPIKey, qdrantURL, qdrantAPIKey string) (*EmbeddingService, error) {
	var dialOpts []grpc.DialOption
	if qdrantAPIKey != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(&bearerAuth{token: qdrantAPIKey}))
	}
	dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))

	conn, err := grpc.NewClient(qdrantURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	return &EmbeddingService{
		openaiClient: openai.NewClient(openaiAPIKey),
		collections:  qdrant.NewCollectionsClient(conn),
		points:       qdrant.NewPointsClient(conn),
		conn:         conn,
	}, nil
}

// Close releases the Qdrant connection
func (s *EmbeddingService) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// Health verifies the Qdrant connection
func (s *EmbeddingService) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{}); err != nil {
		return fmt.Errorf("Qdrant connection failed: %w", err)
	}
	return nil
}

func collectionName(tenantID uuid.UUID) string {
	return fmt.Sprintf("products_tenant_%s", tenantID)
}

func (s *EmbeddingService) generateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.openaiClient.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}
	return resp.Data[0].Embedding, nil
}

func (s *EmbeddingService) ensureCollection(ctx context.Context, name string) error {
	if _, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: name}); err == nil {
		return nil
	}

	_, err := s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     1536, // OpenAI embedding dimension
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	log.Info().Str("collection", name).Msg("Collection de produtos criada no Qdrant")
	return nil
}

// IndexProduct upserts a product vector built from its name, description,
// brand and tags.
func (s *EmbeddingService) IndexProduct(ctx context.Context, product *models.Product) error {
	name := collectionName(product.TenantID)
	if err := s.ensureCollection(ctx, name); err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join([]string{
		product.Name,
		product.Description,
		product.Brand,
		product.Tags,
	}, " "))

	embedding, err := s.generateEmbedding(ctx, text)
	if err != nil {
		return err
	}

	_, err = s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points: []*qdrant.PointStruct{
			{
				Id: &qdrant.PointId{
					PointIdOptions: &qdrant.PointId_Uuid{Uuid: product.ID.String()},
				},
				Vectors: &qdrant.Vectors{
					VectorsOptions: &qdrant.Vectors_Vector{
						Vector: &qdrant.Vector{Data: embedding},
					},
				},
				Payload: map[string]*qdrant.Value{
					"product_id": {Kind: &qdrant.Value_StringValue{StringValue: product.ID.String()}},
					"tenant_id":  {Kind: &qdrant.Value_StringValue{StringValue: product.TenantID.String()}},
					"name":       {Kind: &qdrant.Value_StringValue{StringValue: product.Name}},
					"price":      {Kind: &qdrant.Value_StringValue{StringValue: product.Price}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to store embedding in Qdrant: %w", err)
	}
	return nil
}

// DeleteProduct removes a product vector
func (s *EmbeddingService) DeleteProduct(ctx context.Context, tenantID, productID uuid.UUID) error {
	_, err := s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName(tenantID),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{
						{PointIdOptions: &qdrant.PointId_Uuid{Uuid: productID.String()}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete embedding from Qdrant: %w", err)
	}
	return nil
}

// RelatedProducts searches the tenant index and renders the matches as
// prompt-ready lines. An empty string means no usable context.
func (s *EmbeddingService) RelatedProducts(ctx context.Context, tenantID uuid.UUID, query string, limit int) (string, error) {
	embedding, err := s.generateEmbedding(ctx, query)
	if err != nil {
		return "", err
	}

	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: collectionName(tenantID),
		Vector:         embedding,
		Limit:          uint64(limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to search in Qdrant: %w", err)
	}

	var b strings.Builder
	for _, point := range resp.Result {
		payload := point.Payload
		if payload == nil {
			continue
		}
		name := stringValue(payload["name"])
		if name == "" {
			continue
		}
		price := stringValue(payload["price"])
		fmt.Fprintf(&b, "- [%s] — R$ %s\n", name, price)
	}
	return b.String(), nil
}

func stringValue(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
		return sv.StringValue
	}
	return ""
}
