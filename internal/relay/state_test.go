package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authrelay/internal/downstream"
)

func TestStateRoundTrip(t *testing.T) {
	original := &downstream.AuthorizationRequest{
		ResponseType:        "code",
		ClientID:            "client-1",
		RedirectURI:         "https://app.example.com/callback",
		Scope:               "email profile",
		State:               "client-nonce-xyz",
		CodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeMethod: "S256",
	}

	encoded, err := EncodeState(original)
	require.NoError(t, err)

	decoded, err := DecodeState(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestStateRoundTripMinimalRequest(t *testing.T) {
	original := &downstream.AuthorizationRequest{ClientID: "only-client"}

	encoded, err := EncodeState(original)
	require.NoError(t, err)

	decoded, err := DecodeState(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeStateFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base64", "%%%not-base64%%%"},
		{"base64 but not JSON", "bm90LWpzb24="},
		{"JSON without client id", "eyJzY29wZSI6ImVtYWlsIn0="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeState(tt.input)
			assert.Error(t, err)
			assert.Nil(t, decoded)
		})
	}
}
