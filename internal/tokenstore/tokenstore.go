// Package tokenstore persists the single bearer token that represents the
// client's session.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bremen-jose-oliveira/mylibrary/internal/crypto"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// EnvEncryptionKey is the environment variable for the encryption key
	EnvEncryptionKey = "TOKEN_ENCRYPTION_KEY"
	// EnvPassphrase is the environment variable for a passphrase-derived key
	EnvPassphrase = "TOKEN_PASSPHRASE"

	// DefaultKeyFileName is the default name for the key file
	DefaultKeyFileName = ".mylibrary-token-key"
)

// Store is the token capability consumed by the API client and session flows.
// An absent token is reported as ("", nil).
type Store interface {
	GetToken(ctx context.Context) (string, error)
	StoreToken(ctx context.Context, token string) error
	RemoveToken(ctx context.Context) error
}

// SQLiteStore keeps the token encrypted in a SQLite database.
type SQLiteStore struct {
	db     *gorm.DB
	sealer *crypto.Sealer
}

// Config holds configuration for the SQLite token store
type Config struct {
	// DatabasePath is the path to the SQLite database file
	DatabasePath string

	// EncryptionKey is the base64-encoded 32-byte encryption key
	EncryptionKey string

	// Passphrase derives the key with scrypt when no EncryptionKey is set
	Passphrase string

	// KeyFilePath is the path to the generated key file.
	// If empty, defaults to ~/.mylibrary-token-key
	KeyFilePath string
}

// NewSQLite opens (and migrates) the token database.
func NewSQLite(cfg Config) (*SQLiteStore, error) {
	sealer, err := resolveSealer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&entities.StoredSession{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStore{db: db, sealer: sealer}, nil
}

// resolveSealer picks the key source: explicit key, environment key,
// passphrase (config or environment), then a key file that is generated on
// first use.
func resolveSealer(cfg Config) (*crypto.Sealer, error) {
	if cfg.EncryptionKey != "" {
		return crypto.NewSealerFromBase64(cfg.EncryptionKey)
	}
	if envKey := os.Getenv(EnvEncryptionKey); envKey != "" {
		return crypto.NewSealerFromBase64(envKey)
	}

	passphrase := cfg.Passphrase
	if passphrase == "" {
		passphrase = os.Getenv(EnvPassphrase)
	}
	if passphrase != "" {
		return crypto.NewSealerFromPassphrase(passphrase)
	}

	keyFilePath := KeyFilePath(cfg.KeyFilePath)
	if data, err := os.ReadFile(keyFilePath); err == nil {
		return crypto.NewSealerFromBase64(string(data))
	}

	newKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.WriteFile(keyFilePath, []byte(newKey), 0600); err != nil {
		return nil, fmt.Errorf("failed to save encryption key to %s: %w", keyFilePath, err)
	}
	return crypto.NewSealerFromBase64(newKey)
}

// GetToken returns the decrypted token, or "" when logged out.
func (s *SQLiteStore) GetToken(ctx context.Context) (string, error) {
	var row entities.StoredSession
	result := s.db.WithContext(ctx).Order("updated_at DESC").First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get token: %w", result.Error)
	}

	token, err := s.sealer.Open(row.Token)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return token, nil
}

// StoreToken replaces whatever token was stored before.
func (s *SQLiteStore) StoreToken(ctx context.Context, token string) error {
	if token == "" {
		return s.RemoveToken(ctx)
	}

	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entities.StoredSession{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous token: %w", err)
		}
		if err := tx.Create(&entities.StoredSession{Token: sealed}).Error; err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		return nil
	})
}

// RemoveToken deletes the stored token. Removing an absent token is a no-op.
func (s *SQLiteStore) RemoveToken(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&entities.StoredSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// KeyFilePath returns the path to the key file being used
func KeyFilePath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultKeyFileName
	}
	return filepath.Join(homeDir, DefaultKeyFileName)
}

// MemoryStore keeps the token in process memory only.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemory(initial string) *MemoryStore {
	return &MemoryStore{token: initial}
}

func (m *MemoryStore) GetToken(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) StoreToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) RemoveToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
