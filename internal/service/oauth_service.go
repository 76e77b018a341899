package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/yasinhessnawi1/authgate/internal/config"
	"github.com/yasinhessnawi1/authgate/internal/constants"
)

// googleUserInfoURL returns the profile of the account that granted the token.
const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthProfile is what an OAuth provider tells us about the account.
type OAuthProfile struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// OAuthProvider exchanges an authorization code for the account profile.
type OAuthProvider interface {
	Exchange(ctx context.Context, code string) (*OAuthProfile, error)
}

// GoogleOAuthProvider implements OAuthProvider with Google sign-in.
type GoogleOAuthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleOAuthProvider creates a Google provider from the OAuth settings.
func NewGoogleOAuthProvider(cfg *config.OAuthSettings) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// Exchange trades the code for a token and fetches the userinfo document.
//
// Parameters:
//   - ctx: Context for the outbound calls
//   - code: The authorization code from the redirect
//
// Returns:
//   - The account profile
//   - An error if the exchange or the userinfo call fails
func (p *GoogleOAuthProvider) Exchange(ctx context.Context, code string) (*OAuthProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.OAuthExchangeTimeout)
	defer cancel()

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	client := p.config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var profile OAuthProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	return &profile, nil
}
