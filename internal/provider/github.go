package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// Default GitHub OAuth endpoints.
const (
	githubAuthorizeEndpoint = "https://github.com/login/oauth/authorize"
	githubTokenEndpoint     = "https://github.com/login/oauth/access_token"
	githubProfileEndpoint   = "https://api.github.com/user"
)

// GitHubConfig configures the GitHub provider.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	RedirectURI  string

	// Endpoint overrides, used by tests. Empty fields use the GitHub defaults.
	AuthorizeEndpoint string
	TokenEndpoint     string
	ProfileEndpoint   string

	HTTPClient *http.Client
}

// GitHub authenticates users against GitHub OAuth.
type GitHub struct {
	cfg        GitHubConfig
	httpClient *http.Client
}

// NewGitHub creates a GitHub provider, applying endpoint defaults.
func NewGitHub(cfg *GitHubConfig) *GitHub {
	c := *cfg
	if c.AuthorizeEndpoint == "" {
		c.AuthorizeEndpoint = githubAuthorizeEndpoint
	}
	if c.TokenEndpoint == "" {
		c.TokenEndpoint = githubTokenEndpoint
	}
	if c.ProfileEndpoint == "" {
		c.ProfileEndpoint = githubProfileEndpoint
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	return &GitHub{cfg: c, httpClient: httpClient}
}

func (g *GitHub) Name() string { return "github" }

// AuthorizeURL builds the GitHub authorization redirect. GitHub has no
// hosted-domain concept, so hd is never emitted.
func (g *GitHub) AuthorizeURL(state string) string {
	return BuildAuthorizeURL(g.cfg.AuthorizeEndpoint, g.cfg.ClientID, g.cfg.Scope,
		g.cfg.RedirectURI, state, "")
}

// ExchangeCode trades an authorization code for an access token. GitHub
// answers with form-encoded data unless JSON is requested explicitly.
func (g *GitHub) ExchangeCode(ctx context.Context, code string) ExchangeResult {
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
	headers := map[string]string{"Accept": "application/json"}

	_, body, errResp := exchangeForm(ctx, g.httpClient, g.cfg.TokenEndpoint, form, headers)
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

// FetchIdentity resolves the GitHub user into the canonical Identity. The
// numeric account id becomes the stable subject; the login stands in for a
// missing display name.
func (g *GitHub) FetchIdentity(ctx context.Context, accessToken string) (*Identity, *ErrorResponse) {
	body, errResp := fetchBearer(ctx, g.httpClient, g.cfg.ProfileEndpoint, accessToken)
	if errResp != nil {
		return nil, errResp
	}

	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "failed to parse profile response",
		}
	}
	if profile.ID == 0 {
		return nil, &ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "profile response missing subject id",
		}
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return &Identity{
		Subject: strconv.FormatInt(profile.ID, 10),
		Name:    name,
		Email:   profile.Email,
	}, nil
}
