package provider

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authrelay/internal/config"
)

func TestBuildAuthorizeURL(t *testing.T) {
	raw := BuildAuthorizeURL(
		"https://idp.example.com/auth",
		"my-client",
		"email profile",
		"http://localhost:8484/callback",
		"opaque-state",
		"",
	)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "my-client", q.Get("client_id"))
	assert.Equal(t, "email profile", q.Get("scope"))
	assert.Equal(t, "http://localhost:8484/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "opaque-state", q.Get("state"))
	assert.False(t, q.Has("hd"))
}

func TestBuildAuthorizeURLOmitsEmptyState(t *testing.T) {
	raw := BuildAuthorizeURL("https://idp.example.com/auth", "c", "s", "r", "", "")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.False(t, u.Query().Has("state"))
}

func TestBuildAuthorizeURLHostedDomain(t *testing.T) {
	raw := BuildAuthorizeURL("https://idp.example.com/auth", "c", "s", "r", "st", "example.com")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Query().Get("hd"))
}

func TestBuildAuthorizeURLEndpointWithQuery(t *testing.T) {
	raw := BuildAuthorizeURL("https://idp.example.com/auth?tenant=a", "c", "s", "r", "st", "")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "a", u.Query().Get("tenant"))
	assert.Equal(t, "c", u.Query().Get("client_id"))
}

func TestNewSelectsVariant(t *testing.T) {
	google, err := New(config.ProviderConfig{Type: config.ProviderGoogle, ClientID: "id", ClientSecret: "sec"}, "http://localhost/callback")
	require.NoError(t, err)
	assert.Equal(t, "google", google.Name())

	github, err := New(config.ProviderConfig{Type: config.ProviderGitHub, ClientID: "id", ClientSecret: "sec"}, "http://localhost/callback")
	require.NoError(t, err)
	assert.Equal(t, "github", github.Name())

	_, err = New(config.ProviderConfig{Type: "okta"}, "http://localhost/callback")
	assert.Error(t, err)
}

func TestErrorResponseWrite(t *testing.T) {
	e := &ErrorResponse{Status: 502, Message: "token exchange failed with status 500", UpstreamBody: `{"error":"server_error"}`}
	assert.Contains(t, e.Error(), "server_error")

	plain := &ErrorResponse{Status: 400, Message: "missing authorization code"}
	assert.Equal(t, "missing authorization code", plain.Error())
}
