package downstream

import (
	"fmt"
	"net/http"
	"net/url"
)

// OAuth 2.0 error codes from RFC 6749.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
)

// AuthorizationRequest is the downstream client's authorization request as it
// arrived at GET /authorize. The relay round-trips it through the upstream
// redirect and hands it back to the engine unchanged, so the grant is bound
// to exactly the scope and redirect target the client originally asked for.
type AuthorizationRequest struct {
	ResponseType        string `json:"response_type,omitempty"`
	ClientID            string `json:"client_id"`
	RedirectURI         string `json:"redirect_uri,omitempty"`
	Scope               string `json:"scope,omitempty"`
	State               string `json:"state,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
}

// ParseAuthorizationRequest reads an AuthorizationRequest from the query
// string of an inbound request. Only the client identifier is mandatory here;
// full validation happens when the engine mints the grant.
func ParseAuthorizationRequest(r *http.Request) (*AuthorizationRequest, error) {
	q := r.URL.Query()

	req := &AuthorizationRequest{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	if req.ClientID == "" {
		return nil, fmt.Errorf("%s: client_id is required", ErrorCodeInvalidRequest)
	}
	return req, nil
}

// Props is the capability context bound to a downstream grant: the identity
// and upstream access token of the authenticated principal. It is opaque to
// the downstream client and is the sole input gated tools receive.
type Props struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
}

// Authenticated reports whether the context carries an upstream token.
func (p *Props) Authenticated() bool {
	return p != nil && p.AccessToken != ""
}

// redirectWithCode appends code and state query parameters to the client's
// redirect target.
func redirectWithCode(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%s: invalid redirect_uri: %w", ErrorCodeInvalidRequest, err)
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
