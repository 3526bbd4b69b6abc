package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"bartally/internal/core/apperror"
)

// ServiceKey identifies one machine collaborator (POS, purchasing system)
// allowed to push ledger batches. The secret is stored bcrypt-hashed; the
// plaintext exists only in the issue response.
type ServiceKey struct {
	KeyID        string     `db:"key_id"`
	SourceSystem string     `db:"source_system"`
	Description  string     `db:"description"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
	LastUsedAt   *time.Time `db:"last_used_at"`
}

// ServiceKeyCredentials is the one-time issue result. Token is what the
// collaborator presents: "<key-id>.<secret>".
type ServiceKeyCredentials struct {
	KeyID  string `json:"keyId"`
	Secret string `json:"secret"`
	Token  string `json:"token"`
}

// ServiceKeyStore manages collaborator keys.
// In Database-per-Tenant architecture, TxManager is obtained from context so
// keys live in the tenant's own sys_service_keys table.
type ServiceKeyStore struct{}

// NewServiceKeyStore creates a new service key store.
func NewServiceKeyStore() *ServiceKeyStore {
	return &ServiceKeyStore{}
}

// Issue creates a key for a source system and returns the plaintext token.
// The secret cannot be recovered later; a lost token means a new key.
func (s *ServiceKeyStore) Issue(ctx context.Context, sourceSystem, description string) (*ServiceKeyCredentials, error) {
	if sourceSystem == "" {
		return nil, apperror.NewValidation("source system is required")
	}

	keyID, err := randomHex(8)
	if err != nil {
		return nil, fmt.Errorf("generate key id: %w", err)
	}
	secret, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	_, err = MustGetTxManager(ctx).GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_service_keys (key_id, secret_hash, source_system, description, is_active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
	`, keyID, string(hash), sourceSystem, description, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("insert service key: %w", err)
	}

	return &ServiceKeyCredentials{
		KeyID:  keyID,
		Secret: secret,
		Token:  keyID + "." + secret,
	}, nil
}

// Verify checks a presented token and returns the key's source system.
// Any failure maps to the same unauthorized error; callers learn nothing
// about which half was weak.
func (s *ServiceKeyStore) Verify(ctx context.Context, token string) (string, error) {
	keyID, secret, ok := strings.Cut(token, ".")
	if !ok || keyID == "" || secret == "" {
		return "", apperror.NewUnauthorized("invalid service key")
	}

	var secretHash, sourceSystem string
	err := MustGetTxManager(ctx).GetQuerier(ctx).QueryRow(ctx, `
		SELECT secret_hash, source_system
		FROM sys_service_keys
		WHERE key_id = $1 AND is_active = TRUE
	`, keyID).Scan(&secretHash, &sourceSystem)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", apperror.NewUnauthorized("invalid service key")
		}
		return "", fmt.Errorf("lookup service key: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)); err != nil {
		return "", apperror.NewUnauthorized("invalid service key")
	}

	// Best effort; a failed touch must not fail the request
	_, _ = MustGetTxManager(ctx).GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_service_keys SET last_used_at = $1 WHERE key_id = $2
	`, time.Now().UTC(), keyID)

	return sourceSystem, nil
}

// Revoke deactivates a key. Existing requests in flight finish; the next
// Verify fails.
func (s *ServiceKeyStore) Revoke(ctx context.Context, keyID string) error {
	tag, err := MustGetTxManager(ctx).GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_service_keys SET is_active = FALSE WHERE key_id = $1
	`, keyID)
	if err != nil {
		return fmt.Errorf("revoke service key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("service key", keyID)
	}
	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
