// Package token manages the session's single persisted bearer
// credential: save with an absolute expiry, load with an expiry safety
// margin, clear on sign-out or detected invalidity.
package token

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ratewatch/rated-history-go/internal/db/repository"
	"github.com/ratewatch/rated-history-go/internal/models"
	"github.com/ratewatch/rated-history-go/pkg/logger"
)

// DefaultExpiryMargin is how close to expiry a stored credential may be
// before Load refuses to hand it out. Keeps a request from firing with
// a token that dies mid-flight.
const DefaultExpiryMargin = 5 * time.Minute

// ErrNoCredential is returned by the token source when no usable
// credential is stored.
var ErrNoCredential = errors.New("token: no stored credential")

// Store wraps the credential repository with the expiry-margin policy.
type Store struct {
	repo   repository.CredentialRepository
	margin time.Duration
	log    *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates a Store. A non-positive margin falls back to
// DefaultExpiryMargin.
func NewStore(repo repository.CredentialRepository, margin time.Duration) *Store {
	if margin <= 0 {
		margin = DefaultExpiryMargin
	}
	return &Store{
		repo:   repo,
		margin: margin,
		log:    logger.Named("token"),
		now:    time.Now,
	}
}

// Save stores the access token with an absolute expiry of now plus the
// server-declared lifetime, overwriting any prior record.
func (s *Store) Save(ctx context.Context, accessToken string, lifetime time.Duration) (*models.Credential, error) {
	cred := &models.Credential{
		AccessToken: accessToken,
		ExpiresAt:   s.now().Add(lifetime),
	}

	if err := s.repo.Put(ctx, cred); err != nil {
		return nil, err
	}

	s.log.Info("credential saved", zap.Time("expires_at", cred.ExpiresAt))
	return cred, nil
}

// Load returns the stored credential, or nil when none is stored, the
// record is malformed, or its expiry falls within the safety margin.
// Expiring and malformed records are purged so they are never retried.
func (s *Store) Load(ctx context.Context) (*models.Credential, error) {
	cred, err := s.repo.Get(ctx)
	if err != nil {
		// A record we cannot read is a record we do not have.
		s.log.Warn("stored credential unreadable, treating as absent", zap.Error(err))
		return nil, nil
	}
	if cred == nil {
		return nil, nil
	}

	if cred.AccessToken == "" || cred.ExpiresWithin(s.now(), s.margin) {
		s.log.Info("purging stored credential",
			zap.Bool("malformed", cred.AccessToken == ""),
			zap.Time("expires_at", cred.ExpiresAt),
		)
		if err := s.repo.Delete(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return cred, nil
}

// Clear removes the persisted credential unconditionally.
func (s *Store) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx)
}
