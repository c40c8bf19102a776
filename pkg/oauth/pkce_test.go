package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePKCE(t *testing.T) {
	pkce, err := GeneratePKCE()
	require.NoError(t, err)

	assert.NotEmpty(t, pkce.CodeVerifier)
	assert.NotEmpty(t, pkce.CodeChallenge)
	assert.Equal(t, PKCEMethodS256, pkce.CodeChallengeMethod)
	assert.NotEqual(t, pkce.CodeVerifier, pkce.CodeChallenge)
}

func TestVerifyPKCES256(t *testing.T) {
	pkce, err := GeneratePKCE()
	require.NoError(t, err)

	assert.NoError(t, VerifyPKCE(pkce.CodeChallenge, PKCEMethodS256, pkce.CodeVerifier))
	assert.Error(t, VerifyPKCE(pkce.CodeChallenge, PKCEMethodS256, "wrong-verifier"))
	assert.Error(t, VerifyPKCE(pkce.CodeChallenge, PKCEMethodS256, ""))
}

func TestVerifyPKCEPlain(t *testing.T) {
	assert.NoError(t, VerifyPKCE("the-verifier", PKCEMethodPlain, "the-verifier"))
	assert.Error(t, VerifyPKCE("the-verifier", PKCEMethodPlain, "other"))
}

func TestVerifyPKCEDefaultsToS256(t *testing.T) {
	pkce, err := GeneratePKCE()
	require.NoError(t, err)
	assert.NoError(t, VerifyPKCE(pkce.CodeChallenge, "", pkce.CodeVerifier))
}

func TestVerifyPKCENoChallenge(t *testing.T) {
	// Flows without PKCE skip verification entirely.
	assert.NoError(t, VerifyPKCE("", PKCEMethodS256, "anything"))
	assert.NoError(t, VerifyPKCE("", "", ""))
}

func TestVerifyPKCEUnknownMethod(t *testing.T) {
	assert.Error(t, VerifyPKCE("challenge", "S512", "verifier"))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
}
