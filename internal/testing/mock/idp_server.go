// Package mock provides a fake upstream identity provider for tests. It
// serves the two endpoints the relay talks to, the token exchange and the
// profile fetch, and records every request so tests can assert call counts.
package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// IdentityProvider is a fake upstream IdP backed by httptest.
type IdentityProvider struct {
	server *httptest.Server

	mu              sync.Mutex
	tokenRequests   int
	profileRequests int
	lastTokenForm   map[string]string

	// AccessToken is returned from successful exchanges.
	AccessToken string

	// Profile is returned from /userinfo. Keys mirror the upstream wire
	// format, e.g. "id", "name", "email" for a Google-shaped provider.
	Profile map[string]any

	// FailExchangeStatus, when non-zero, makes /token respond with that
	// status and FailExchangeBody instead of a token.
	FailExchangeStatus int
	FailExchangeBody   string

	// OmitAccessToken makes /token respond 200 with a JSON body lacking the
	// access_token field.
	OmitAccessToken bool

	// FailProfileStatus, when non-zero, makes /userinfo respond with that
	// status and FailProfileBody.
	FailProfileStatus int
	FailProfileBody   string
}

// NewIdentityProvider starts a fake IdP with sensible defaults.
func NewIdentityProvider() *IdentityProvider {
	idp := &IdentityProvider{
		AccessToken: "mock-upstream-token",
		Profile: map[string]any{
			"id":    "user-123",
			"name":  "Test User",
			"email": "test@example.com",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", idp.handleToken)
	mux.HandleFunc("/userinfo", idp.handleUserinfo)
	idp.server = httptest.NewServer(mux)
	return idp
}

// Close shuts the fake IdP down.
func (idp *IdentityProvider) Close() {
	idp.server.Close()
}

// TokenURL returns the exchange endpoint.
func (idp *IdentityProvider) TokenURL() string {
	return idp.server.URL + "/token"
}

// UserinfoURL returns the profile endpoint.
func (idp *IdentityProvider) UserinfoURL() string {
	return idp.server.URL + "/userinfo"
}

// TokenRequestCount reports how many exchange requests arrived.
func (idp *IdentityProvider) TokenRequestCount() int {
	idp.mu.Lock()
	defer idp.mu.Unlock()
	return idp.tokenRequests
}

// ProfileRequestCount reports how many profile requests arrived.
func (idp *IdentityProvider) ProfileRequestCount() int {
	idp.mu.Lock()
	defer idp.mu.Unlock()
	return idp.profileRequests
}

// LastTokenForm returns the form fields of the most recent exchange request.
func (idp *IdentityProvider) LastTokenForm() map[string]string {
	idp.mu.Lock()
	defer idp.mu.Unlock()
	return idp.lastTokenForm
}

func (idp *IdentityProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	idp.mu.Lock()
	idp.tokenRequests++
	form := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		form[key] = r.PostForm.Get(key)
	}
	idp.lastTokenForm = form
	idp.mu.Unlock()

	if idp.FailExchangeStatus != 0 {
		w.WriteHeader(idp.FailExchangeStatus)
		w.Write([]byte(idp.FailExchangeBody))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if idp.OmitAccessToken {
		json.NewEncoder(w).Encode(map[string]string{"token_type": "Bearer"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{
		"access_token": idp.AccessToken,
		"token_type":   "Bearer",
	})
}

func (idp *IdentityProvider) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	idp.mu.Lock()
	idp.profileRequests++
	idp.mu.Unlock()

	if idp.FailProfileStatus != 0 {
		w.WriteHeader(idp.FailProfileStatus)
		w.Write([]byte(idp.FailProfileBody))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(idp.Profile)
}
