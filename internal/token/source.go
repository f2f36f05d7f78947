package token

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

const sourceLoadTimeout = 5 * time.Second

// storeSource adapts the Store to oauth2.TokenSource so the API client
// re-reads the persisted credential on every outbound request instead
// of caching one across calls.
type storeSource struct {
	store *Store
}

// Source returns an oauth2 token source backed by the store.
func (s *Store) Source() oauth2.TokenSource {
	return &storeSource{store: s}
}

func (ts *storeSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sourceLoadTimeout)
	defer cancel()

	cred, err := ts.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNoCredential
	}

	return &oauth2.Token{
		AccessToken: cred.AccessToken,
		Expiry:      cred.ExpiresAt,
	}, nil
}
