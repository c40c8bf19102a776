package downstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"authrelay/pkg/logging"
	pkgoauth "authrelay/pkg/oauth"
)

// Engine is the downstream OAuth engine: it mints authorization codes when
// the relay completes a flow, exchanges them for access tokens at the token
// endpoint, and validates bearer tokens presented to the tool gateway.
//
// Codes and tokens are opaque random strings held in memory; each grant is
// keyed by the upstream identity's subject id and carries the Props bundle
// as opaque metadata.
type Engine struct {
	registry *Registry

	mu     sync.RWMutex
	codes  map[string]*authCode
	grants map[string]*grant // access token -> grant

	codeTTL  time.Duration
	tokenTTL time.Duration

	stopCleanup chan struct{}
}

type authCode struct {
	ClientID            string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	UserID              string
	Props               *Props
	ExpiresAt           time.Time
}

type grant struct {
	ID        string
	ClientID  string
	UserID    string
	Scope     string
	Props     *Props
	ExpiresAt time.Time
}

// NewEngine creates a downstream engine backed by the given client registry.
func NewEngine(registry *Registry, codeTTL, tokenTTL time.Duration) *Engine {
	e := &Engine{
		registry:    registry,
		codes:       make(map[string]*authCode),
		grants:      make(map[string]*grant),
		codeTTL:     codeTTL,
		tokenTTL:    tokenTTL,
		stopCleanup: make(chan struct{}),
	}
	go e.cleanupLoop()
	return e
}

// CompleteAuthorization mints an authorization code for the original request,
// keyed by the upstream subject id and carrying props as opaque metadata. The
// code is bound to the request's own scope and redirect target, not to any
// re-derived values. Returns the URL the user agent should be redirected to.
func (e *Engine) CompleteAuthorization(req *AuthorizationRequest, userID string, props *Props) (string, error) {
	if req == nil || req.ClientID == "" {
		return "", fmt.Errorf("%s: authorization request is incomplete", ErrorCodeInvalidRequest)
	}
	if userID == "" {
		return "", fmt.Errorf("%s: subject id is required", ErrorCodeInvalidRequest)
	}

	redirectURI, err := e.registry.ValidateRedirectURI(req.ClientID, req.RedirectURI)
	if err != nil {
		return "", err
	}

	code, err := pkgoauth.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}

	e.mu.Lock()
	e.codes[code] = &authCode{
		ClientID:            req.ClientID,
		RedirectURI:         redirectURI,
		Scope:               req.Scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		UserID:              userID,
		Props:               props,
		ExpiresAt:           time.Now().Add(e.codeTTL),
	}
	e.mu.Unlock()

	logging.Info("Downstream", "Authorization code issued for client=%s user=%s",
		req.ClientID, logging.TruncateSubject(userID))

	return redirectWithCode(redirectURI, code, req.State)
}

// ExchangeCode trades a one-time authorization code for an access token.
// PKCE is verified when the original request carried a challenge.
func (e *Engine) ExchangeCode(code, clientID, redirectURI, codeVerifier string) (*oauth2.Token, error) {
	e.mu.Lock()
	ac, ok := e.codes[code]
	if ok {
		// One-time use: consume before any validation so a replayed code
		// can never succeed, even after a failed first attempt.
		delete(e.codes, code)
	}
	e.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%s: authorization code not found", ErrorCodeInvalidGrant)
	}
	if time.Now().After(ac.ExpiresAt) {
		return nil, fmt.Errorf("%s: authorization code expired", ErrorCodeInvalidGrant)
	}
	if ac.ClientID != clientID {
		return nil, fmt.Errorf("%s: client ID mismatch", ErrorCodeInvalidGrant)
	}
	if redirectURI != "" && ac.RedirectURI != redirectURI {
		return nil, fmt.Errorf("%s: redirect URI mismatch", ErrorCodeInvalidGrant)
	}
	if err := pkgoauth.VerifyPKCE(ac.CodeChallenge, ac.CodeChallengeMethod, codeVerifier); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorCodeInvalidGrant, err)
	}

	accessToken, err := pkgoauth.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	e.mu.Lock()
	e.grants[accessToken] = &grant{
		ID:        uuid.NewString(),
		ClientID:  ac.ClientID,
		UserID:    ac.UserID,
		Scope:     ac.Scope,
		Props:     ac.Props,
		ExpiresAt: time.Now().Add(e.tokenTTL),
	}
	e.mu.Unlock()

	logging.Info("Downstream", "Access token issued for client=%s user=%s",
		clientID, logging.TruncateSubject(ac.UserID))

	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(e.tokenTTL),
	}, nil
}

// ValidateToken resolves a bearer access token into the grant's Props.
func (e *Engine) ValidateToken(accessToken string) (*Props, error) {
	e.mu.RLock()
	g, ok := e.grants[accessToken]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: unknown access token", ErrorCodeInvalidGrant)
	}
	if time.Now().After(g.ExpiresAt) {
		e.mu.Lock()
		delete(e.grants, accessToken)
		e.mu.Unlock()
		return nil, fmt.Errorf("%s: access token expired", ErrorCodeInvalidGrant)
	}
	return g.Props, nil
}

// tokenResponse is the JSON body of a successful token exchange.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// errorResponse is the JSON body of a failed token exchange per RFC 6749 §5.2.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ServeToken is the downstream token endpoint (POST /token). It accepts the
// standard authorization_code grant with optional PKCE verification.
func (e *Engine) ServeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeTokenError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "malformed form body")
		return
	}

	if grantType := r.PostFormValue("grant_type"); grantType != "authorization_code" {
		writeTokenError(w, http.StatusBadRequest, ErrorCodeInvalidRequest,
			fmt.Sprintf("unsupported grant_type: %s", grantType))
		return
	}

	token, err := e.ExchangeCode(
		r.PostFormValue("code"),
		r.PostFormValue("client_id"),
		r.PostFormValue("redirect_uri"),
		r.PostFormValue("code_verifier"),
	)
	if err != nil {
		logging.Warn("Downstream", "Token exchange rejected: %v", err)
		writeTokenError(w, http.StatusBadRequest, ErrorCodeInvalidGrant, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   int64(time.Until(token.Expiry).Seconds()),
	})
}

func writeTokenError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

// Stop stops the background cleanup goroutine.
func (e *Engine) Stop() {
	close(e.stopCleanup)
}

// cleanupLoop periodically removes expired codes and grants.
func (e *Engine) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.cleanup()
		case <-e.stopCleanup:
			return
		}
	}
}

func (e *Engine) cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	removed := 0
	for code, ac := range e.codes {
		if now.After(ac.ExpiresAt) {
			delete(e.codes, code)
			removed++
		}
	}
	for token, g := range e.grants {
		if now.After(g.ExpiresAt) {
			delete(e.grants, token)
			removed++
		}
	}
	if removed > 0 {
		logging.Debug("Downstream", "Cleaned up %d expired codes/grants", removed)
	}
}
