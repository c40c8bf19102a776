package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Default Google OAuth2 endpoints.
const (
	googleAuthorizeEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint     = "https://oauth2.googleapis.com/token"
	googleProfileEndpoint   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleConfig configures the Google provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	RedirectURI  string

	// HostedDomain restricts sign-in to a Google Workspace domain via the
	// hd parameter. Empty means no restriction.
	HostedDomain string

	// Endpoint overrides, used by tests. Empty fields use the Google defaults.
	AuthorizeEndpoint string
	TokenEndpoint     string
	ProfileEndpoint   string

	// HTTPClient overrides the default client, e.g. for custom TLS settings.
	HTTPClient *http.Client
}

// Google authenticates users against Google OAuth2.
type Google struct {
	cfg        GoogleConfig
	httpClient *http.Client
}

// NewGoogle creates a Google provider, applying endpoint defaults.
func NewGoogle(cfg *GoogleConfig) *Google {
	c := *cfg
	if c.AuthorizeEndpoint == "" {
		c.AuthorizeEndpoint = googleAuthorizeEndpoint
	}
	if c.TokenEndpoint == "" {
		c.TokenEndpoint = googleTokenEndpoint
	}
	if c.ProfileEndpoint == "" {
		c.ProfileEndpoint = googleProfileEndpoint
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	return &Google{cfg: c, httpClient: httpClient}
}

func (g *Google) Name() string { return "google" }

// AuthorizeURL builds the Google authorization redirect.
func (g *Google) AuthorizeURL(state string) string {
	return BuildAuthorizeURL(g.cfg.AuthorizeEndpoint, g.cfg.ClientID, g.cfg.Scope,
		g.cfg.RedirectURI, state, g.cfg.HostedDomain)
}

// ExchangeCode trades an authorization code for an access token. A missing
// code fails before any request is dispatched; upstream failures and a
// token-less success body each produce their own prebuilt response.
func (g *Google) ExchangeCode(ctx context.Context, code string) ExchangeResult {
	if code == "" {
		return ExchangeResult{Err: &ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "missing authorization code",
		}}
	}

	form := url.Values{
		"client_id":     {g.cfg.ClientID},
		"client_secret": {g.cfg.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {g.cfg.RedirectURI},
	}

	_, body, errResp := exchangeForm(ctx, g.httpClient, g.cfg.TokenEndpoint, form, nil)
	if errResp != nil {
		return ExchangeResult{Err: errResp}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		return ExchangeResult{Err: &ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "token response missing access_token",
		}}
	}

	return ExchangeResult{AccessToken: tokenResp.AccessToken}
}

// FetchIdentity resolves the Google profile into the canonical Identity.
func (g *Google) FetchIdentity(ctx context.Context, accessToken string) (*Identity, *ErrorResponse) {
	body, errResp := fetchBearer(ctx, g.httpClient, g.cfg.ProfileEndpoint, accessToken)
	if errResp != nil {
		return nil, errResp
	}

	var profile struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "failed to parse profile response",
		}
	}
	if profile.ID == "" {
		return nil, &ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "profile response missing subject id",
		}
	}

	return &Identity{
		Subject: profile.ID,
		Name:    profile.Name,
		Email:   profile.Email,
	}, nil
}
