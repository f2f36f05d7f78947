package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ratewatch/rated-history-go/internal/db"
	"github.com/ratewatch/rated-history-go/internal/models"
)

// credentialName keys the single persisted credential record. One
// credential per device/profile; re-authentication supersedes it
// wholesale.
const credentialName = "session"

// CredentialRepository persists the session's bearer credential.
type CredentialRepository interface {
	// Get returns the stored credential, or nil when none is stored.
	Get(ctx context.Context) (*models.Credential, error)

	// Put stores the credential, overwriting any prior record.
	Put(ctx context.Context, cred *models.Credential) error

	// Delete removes the stored credential unconditionally.
	Delete(ctx context.Context) error
}

type credentialRepository struct {
	db db.DBTX
}

// NewCredentialRepository creates a CredentialRepository backed by Postgres.
func NewCredentialRepository(dbtx db.DBTX) CredentialRepository {
	return &credentialRepository{db: dbtx}
}

func (r *credentialRepository) Get(ctx context.Context) (*models.Credential, error) {
	query := `
		SELECT access_token, expires_at
		FROM credentials
		WHERE name = $1
	`

	var cred models.Credential
	err := r.db.QueryRow(ctx, query, credentialName).Scan(&cred.AccessToken, &cred.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.WrapError(err, "get credential")
	}

	return &cred, nil
}

func (r *credentialRepository) Put(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO credentials (name, access_token, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()
	`

	if _, err := r.db.Exec(ctx, query, credentialName, cred.AccessToken, cred.ExpiresAt); err != nil {
		return db.WrapError(err, "put credential")
	}

	return nil
}

func (r *credentialRepository) Delete(ctx context.Context) error {
	query := `DELETE FROM credentials WHERE name = $1`

	if _, err := r.db.Exec(ctx, query, credentialName); err != nil {
		return db.WrapError(err, "delete credential")
	}

	return nil
}
