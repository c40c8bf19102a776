package relay

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"authrelay/internal/downstream"
)

// The relay state is the downstream authorization request serialized into a
// single URL-transportable string: JSON, then base64url. It is created when
// redirecting upstream and consumed exactly once at the callback, so no
// server-side session exists for an in-flight flow.
//
// The encoding is reversible but unsigned. The state only round-trips
// parameters the downstream client already chose at /authorize, and the
// grant is minted from the upstream-verified identity, so forging a state
// gains nothing beyond what /authorize accepts directly.

// EncodeState serializes an authorization request into an opaque string.
func EncodeState(req *downstream.AuthorizationRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode relay state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeState reverses EncodeState. It fails when the input is missing, not
// decodable, or lacks the required client identifier; each failure is
// terminal for the flow.
func DecodeState(encoded string) (*downstream.AuthorizationRequest, error) {
	if encoded == "" {
		return nil, fmt.Errorf("missing state parameter")
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("state parameter is not decodable: %w", err)
	}

	var req downstream.AuthorizationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("state parameter is not decodable: %w", err)
	}

	if req.ClientID == "" {
		return nil, fmt.Errorf("decoded state lacks a client identifier")
	}
	return &req, nil
}
