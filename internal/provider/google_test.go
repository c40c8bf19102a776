package provider

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authrelay/internal/testing/mock"
)

func newMockedGoogle(idp *mock.IdentityProvider) *Google {
	return NewGoogle(&GoogleConfig{
		ClientID:        "id",
		ClientSecret:    "secret",
		Scope:           "email",
		RedirectURI:     "http://localhost/callback",
		TokenEndpoint:   idp.TokenURL(),
		ProfileEndpoint: idp.UserinfoURL(),
	})
}

func TestGoogleExchangeCode(t *testing.T) {
	idp := mock.NewIdentityProvider()
	defer idp.Close()
	g := newMockedGoogle(idp)

	result := g.ExchangeCode(context.Background(), "the-code")
	require.True(t, result.OK())
	assert.Equal(t, idp.AccessToken, result.AccessToken)
	assert.Equal(t, 1, idp.TokenRequestCount())

	form := idp.LastTokenForm()
	assert.Equal(t, "the-code", form["code"])
	assert.Equal(t, "authorization_code", form["grant_type"])
}

func TestGoogleExchangeCodeMissing(t *testing.T) {
	idp := mock.NewIdentityProvider()
	defer idp.Close()
	g := newMockedGoogle(idp)

	result := g.ExchangeCode(context.Background(), "")
	require.False(t, result.OK())
	assert.Equal(t, http.StatusBadRequest, result.Err.Status)
	assert.Equal(t, 0, idp.TokenRequestCount(), "no request should be dispatched without a code")
}

func TestGoogleExchangeCodeUpstreamFailure(t *testing.T) {
	idp := mock.NewIdentityProvider()
	defer idp.Close()
	idp.FailExchangeStatus = http.StatusInternalServerError
	idp.FailExchangeBody = `{"error":"server_error"}`
	g := newMockedGoogle(idp)

	result := g.ExchangeCode(context.Background(), "the-code")
	require.False(t, result.OK())
	assert.Equal(t, http.StatusBadGateway, result.Err.Status)
	assert.Contains(t, result.Err.UpstreamBody, "server_error")
	assert.Equal(t, 1, idp.TokenRequestCount())
}

func TestGoogleExchangeCodeTokenMissingFromBody(t *testing.T) {
	idp := mock.NewIdentityProvider()
	defer idp.Close()
	idp.OmitAccessToken = true
	g := newMockedGoogle(idp)

	result := g.ExchangeCode(context.Background(), "the-code")
	require.False(t, result.OK())
	assert.Equal(t, http.StatusBadRequest, result.Err.Status)
}

func TestGoogleFetchIdentity(t *testing.T) {
	idp := mock.NewIdentityProvider()
	defer idp.Close()
	g := newMockedGoogle(idp)

	identity, errResp := g.FetchIdentity(context.Background(), "token")
	require.Nil(t, errResp)
	assert.Equal(t, "user-123", identity.Subject)
	assert.Equal(t, "Test User", identity.Name)
	assert.Equal(t, "test@example.com", identity.Email)
}

func TestGoogleFetchIdentityFailure(t *testing.T) {
	idp := mock.NewIdentityProvider()
	defer idp.Close()
	idp.FailProfileStatus = http.StatusUnauthorized
	idp.FailProfileBody = "bad token"
	g := newMockedGoogle(idp)

	identity, errResp := g.FetchIdentity(context.Background(), "token")
	require.NotNil(t, errResp)
	assert.Nil(t, identity)
	assert.Equal(t, http.StatusBadGateway, errResp.Status)
	assert.Contains(t, errResp.UpstreamBody, "bad token")
}

func TestGoogleFetchIdentityMissingSubject(t *testing.T) {
	idp := mock.NewIdentityProvider()
	defer idp.Close()
	idp.Profile = map[string]any{"name": "No Subject"}
	g := newMockedGoogle(idp)

	identity, errResp := g.FetchIdentity(context.Background(), "token")
	require.NotNil(t, errResp)
	assert.Nil(t, identity)
	assert.Equal(t, http.StatusBadRequest, errResp.Status)
}
