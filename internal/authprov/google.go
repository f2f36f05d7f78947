// Package authprov exchanges a scope request for a bearer credential
// through the OAuth 2.0 device-authorization grant, and revokes
// credentials on sign-out. The consent UI itself is the user's browser;
// only the resulting token matters here.
package authprov

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ratewatch/rated-history-go/internal/models"
)

// DeviceGrant is a pending device authorization: the user opens the
// verification URL and enters the code while the session polls for the
// resulting credential.
type DeviceGrant struct {
	VerificationURL string    `json:"verification_url"`
	UserCode        string    `json:"user_code"`
	ExpiresAt       time.Time `json:"expires_at"`

	resp *oauth2.DeviceAuthResponse
}

// Authorizer is the authorization-provider boundary the session
// consumes.
type Authorizer interface {
	// Begin starts a device authorization and returns the grant the
	// user must complete.
	Begin(ctx context.Context) (*DeviceGrant, error)

	// Wait polls until the grant is approved, denied or expired and
	// returns the credential on approval.
	Wait(ctx context.Context, grant *DeviceGrant) (*models.Credential, error)

	// Revoke invalidates the credential at the provider. Best effort.
	Revoke(ctx context.Context, accessToken string) error
}

// GoogleAuthorizer implements Authorizer against Google's OAuth
// endpoints.
type GoogleAuthorizer struct {
	cfg       *oauth2.Config
	revokeURL string
	client    *http.Client
}

// NewGoogle creates a GoogleAuthorizer for one client and one scope.
func NewGoogle(clientID, clientSecret, scope, revokeURL string) (*GoogleAuthorizer, error) {
	if clientID == "" {
		return nil, fmt.Errorf("oauth client id is required")
	}
	if revokeURL == "" {
		revokeURL = "https://oauth2.googleapis.com/revoke"
	}

	return &GoogleAuthorizer{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{scope},
			Endpoint:     google.Endpoint,
		},
		revokeURL: revokeURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (a *GoogleAuthorizer) Begin(ctx context.Context) (*DeviceGrant, error) {
	resp, err := a.cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("start device authorization: %w", err)
	}

	return &DeviceGrant{
		VerificationURL: resp.VerificationURI,
		UserCode:        resp.UserCode,
		ExpiresAt:       resp.Expiry,
		resp:            resp,
	}, nil
}

func (a *GoogleAuthorizer) Wait(ctx context.Context, grant *DeviceGrant) (*models.Credential, error) {
	if grant == nil || grant.resp == nil {
		return nil, fmt.Errorf("no pending device grant")
	}

	tok, err := a.cfg.DeviceAccessToken(ctx, grant.resp)
	if err != nil {
		return nil, fmt.Errorf("device authorization: %w", err)
	}

	return &models.Credential{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry,
	}, nil
}

func (a *GoogleAuthorizer) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke credential: unexpected status %d", resp.StatusCode)
	}

	return nil
}
