// Package provider abstracts the upstream identity provider: building the
// authorize redirect, exchanging an authorization code for an access token,
// and resolving the user profile into a canonical Identity.
//
// Google- and GitHub-style providers are structurally interchangeable over
// the {exchange-code-for-token, fetch-profile} capability set; the variant
// is selected by configuration, never by branching in the callback handler.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"authrelay/internal/config"
)

// DefaultHTTPTimeout is the default timeout for upstream HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// Identity is the canonical user profile resolved from the provider.
// Subject is the stable identifier the downstream engine keys grants by.
type Identity struct {
	Subject string
	Name    string
	Email   string
}

// ErrorResponse is a fully formed failure ready to be written to the caller
// unmodified. Every upstream-facing failure is converted into one of these
// at its origin; no raw transport error crosses the relay boundary.
type ErrorResponse struct {
	Status       int
	Message      string
	UpstreamBody string
}

// Write writes the response. The upstream body, when present, is attached
// for diagnosis.
func (e *ErrorResponse) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(e.Status)
	if e.UpstreamBody != "" {
		fmt.Fprintf(w, "%s: %s", e.Message, e.UpstreamBody)
		return
	}
	io.WriteString(w, e.Message)
}

func (e *ErrorResponse) Error() string {
	if e.UpstreamBody != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.UpstreamBody)
	}
	return e.Message
}

// ExchangeResult is the outcome of a token exchange: either an access token
// or a prebuilt error response, never both. Authorization codes are
// single-use, so there is no retry path.
type ExchangeResult struct {
	AccessToken string
	Err         *ErrorResponse
}

// OK reports whether the exchange produced a token.
func (r ExchangeResult) OK() bool {
	return r.Err == nil
}

// Provider is an upstream identity provider.
type Provider interface {
	// Name identifies the provider variant (google, github).
	Name() string

	// AuthorizeURL builds the upstream authorization redirect carrying the
	// opaque relay state.
	AuthorizeURL(state string) string

	// ExchangeCode trades an authorization code for an access token with
	// exactly one upstream request.
	ExchangeCode(ctx context.Context, code string) ExchangeResult

	// FetchIdentity resolves the canonical identity for an access token
	// with one bearer-authenticated profile request.
	FetchIdentity(ctx context.Context, accessToken string) (*Identity, *ErrorResponse)
}

// New creates the provider selected by cfg.Type. redirectURI is the relay's
// own callback URL registered with the provider.
func New(cfg config.ProviderConfig, redirectURI string) (Provider, error) {
	switch cfg.Type {
	case config.ProviderGoogle:
		return NewGoogle(&GoogleConfig{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scope:        cfg.Scope,
			RedirectURI:  redirectURI,
			HostedDomain: cfg.HostedDomain,
		}), nil
	case config.ProviderGitHub:
		return NewGitHub(&GitHubConfig{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scope:        cfg.Scope,
			RedirectURI:  redirectURI,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s (supported: %s, %s)",
			cfg.Type, config.ProviderGoogle, config.ProviderGitHub)
	}
}

// BuildAuthorizeURL assembles the upstream authorize URL. Pure and
// deterministic; every parameter is URL-encoded, and state and hd are
// omitted entirely when absent rather than emitted empty.
func BuildAuthorizeURL(endpoint, clientID, scope, redirectURI, state, hostedDomain string) string {
	params := url.Values{
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"scope":         {scope},
		"response_type": {"code"},
	}
	if state != "" {
		params.Set("state", state)
	}
	if hostedDomain != "" {
		params.Set("hd", hostedDomain)
	}

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + params.Encode()
}

// exchangeForm performs the single token-endpoint request shared by the
// provider variants. The form carries the OAuth2-standard snake_case field
// names; extraHeaders lets a variant request a JSON response.
func exchangeForm(ctx context.Context, client *http.Client, tokenURL string, form url.Values, extraHeaders map[string]string) (int, []byte, *ErrorResponse) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, &ErrorResponse{
			Status:  http.StatusInternalServerError,
			Message: "failed to build token request",
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &ErrorResponse{
			Status:  http.StatusBadGateway,
			Message: fmt.Sprintf("token exchange request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &ErrorResponse{
			Status:  http.StatusBadGateway,
			Message: "failed to read token response",
		}
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, body, &ErrorResponse{
			Status:       http.StatusBadGateway,
			Message:      fmt.Sprintf("token exchange failed with status %d", resp.StatusCode),
			UpstreamBody: string(body),
		}
	}
	return resp.StatusCode, body, nil
}

// fetchBearer performs one bearer-authenticated GET against a profile
// endpoint and returns the body, or a prebuilt failure carrying the
// upstream body.
func fetchBearer(ctx context.Context, client *http.Client, endpoint, accessToken string) ([]byte, *ErrorResponse) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ErrorResponse{
			Status:  http.StatusInternalServerError,
			Message: "failed to build profile request",
		}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ErrorResponse{
			Status:  http.StatusBadGateway,
			Message: fmt.Sprintf("profile request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrorResponse{
			Status:  http.StatusBadGateway,
			Message: "failed to read profile response",
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrorResponse{
			Status:       http.StatusBadGateway,
			Message:      fmt.Sprintf("profile fetch failed with status %d", resp.StatusCode),
			UpstreamBody: string(body),
		}
	}
	return body, nil
}
