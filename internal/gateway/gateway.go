package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"authrelay/internal/config"
	"authrelay/internal/downstream"
	"authrelay/pkg/logging"
)

// TokenValidator resolves a downstream bearer token into the capability
// context minted when the grant was issued.
type TokenValidator interface {
	ValidateToken(accessToken string) (*downstream.Props, error)
}

// Gateway exposes the relay's tools over MCP. Requests must carry a bearer
// token issued by the downstream engine; the resolved capability context is
// placed on the request context for tool handlers.
type Gateway struct {
	validator          TokenValidator
	validateIdentifier string
	gmailEndpoint      string
	httpClient         *http.Client
	mcpServer          *server.MCPServer
}

// Option adjusts gateway construction, mainly for tests.
type Option func(*Gateway)

// WithGmailEndpoint overrides the Gmail send endpoint.
func WithGmailEndpoint(endpoint string) Option {
	return func(g *Gateway) { g.gmailEndpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client used for outbound tool calls.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) { g.httpClient = client }
}

// New builds the gateway and registers its tools.
func New(cfg config.GatewayConfig, validator TokenValidator, opts ...Option) *Gateway {
	g := &Gateway{
		validator:          validator,
		validateIdentifier: cfg.ValidateIdentifier,
		gmailEndpoint:      defaultGmailEndpoint,
		httpClient:         &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}

	g.mcpServer = server.NewMCPServer(
		"authrelay",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)
	g.registerTools()
	return g
}

// Handler returns the HTTP handler serving MCP over streamable HTTP, wrapped
// in bearer token validation.
func (g *Gateway) Handler() http.Handler {
	return &authMiddleware{
		handler:   server.NewStreamableHTTPServer(g.mcpServer),
		validator: g.validator,
	}
}

// authMiddleware rejects requests without a valid downstream bearer token
// and attaches the token's capability context for tool handlers.
type authMiddleware struct {
	handler   http.Handler
	validator TokenValidator
}

func (m *authMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		m.sendAuthChallenge(w)
		return
	}

	token := strings.TrimPrefix(auth, "Bearer ")
	props, err := m.validator.ValidateToken(token)
	if err != nil {
		logging.Debug("Gateway", "Token validation failed: %v", err)
		m.sendAuthChallenge(w)
		return
	}

	m.handler.ServeHTTP(w, r.WithContext(WithProps(r.Context(), props)))
}

func (m *authMiddleware) sendAuthChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Bearer resource_metadata=%q", "/mcp"))
	w.WriteHeader(http.StatusUnauthorized)
}
