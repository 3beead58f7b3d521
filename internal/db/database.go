package db

import (
	"fmt"
	"log"
	"os"

	"vendazap/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection
func NewDatabase() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		os.Getenv("DB_TIMEZONE"),
	)

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
		// Habilitar criação automática de foreign key constraints
		DisableForeignKeyConstraintWhenMigrating: false,
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// AutoMigrate runs database migrations using GORM
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running GORM AutoMigrate...")

	// Create required extensions first
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Printf("Warning: Could not create uuid-ossp extension: %v", err)
	}

	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		return fmt.Errorf("failed to run GORM AutoMigrate: %w", err)
	}

	if err := createCustomIndexes(db); err != nil {
		log.Printf("Warning: Failed to create some custom indexes: %v", err)
	}

	log.Println("GORM AutoMigrate completed successfully")
	return nil
}

// createCustomIndexes creates indexes GORM does not derive from struct tags
func createCustomIndexes(db *gorm.DB) error {
	indexes := []string{
		// Listagem de conversas por tenant ordenada por última mensagem
		`CREATE INDEX IF NOT EXISTS idx_conversations_tenant_last_message ON conversations (tenant_id, last_message_at DESC)`,
		// Histórico de uma conversa em ordem cronológica
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages (conversation_id, created_at)`,
		// Fila de atenção humana
		`CREATE INDEX IF NOT EXISTS idx_conversations_needs_attention ON conversations (tenant_id, needs_human_attention) WHERE needs_human_attention = true`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
