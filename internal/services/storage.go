package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StorageService re-hosts customer media on S3-compatible storage so the
// transcript never depends on expiring channel URLs.
type StorageService struct {
	s3Client   *s3.S3
	bucket     string
	baseURL    string
	httpClient *http.Client
}

// NewStorageService creates a new storage service from environment config
func NewStorageService() (*StorageService, error) {
	endpoint := os.Getenv("S3_ENDPOINT")
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")
	bucket := os.Getenv("S3_BUCKET")

	if accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("S3 configuration missing")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String("us-east-1"),
		Endpoint: aws.String(endpoint),
		Credentials: credentials.NewStaticCredentials(
			accessKey,
			secretKey,
			"",
		),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client:   s3.New(sess),
		bucket:     bucket,
		baseURL:    fmt.Sprintf("https://%s", bucket),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// RehostImage downloads an inbound image and uploads it under our bucket.
// Returns the public URL and the S3 key.
func (s *StorageService) RehostImage(ctx context.Context, sourceURL string, tenantID, messageID uuid.UUID) (string, string, error) {
	data, contentType, err := s.download(ctx, sourceURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to download image: %w", err)
	}

	if contentType == "" {
		contentType = "image/jpeg"
	}

	s3Key := fmt.Sprintf("%s/conversations/image_%s%s", tenantID, messageID, extensionFor(contentType))
	url, err := s.upload(data, s3Key, contentType)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload image to S3: %w", err)
	}

	log.Info().
		Str("s3_key", s3Key).
		Int("bytes", len(data)).
		Msg("🖼️ Imagem re-hospedada no S3")
	return url, s3Key, nil
}

func (s *StorageService) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20)) // 20MB cap
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (s *StorageService) upload(data []byte, s3Key, contentType string) (string, error) {
	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", s.baseURL, s3Key), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
