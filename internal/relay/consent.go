package relay

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ConsentCookieName is the cookie carrying the signed record of clients the
// user has already approved on this browser.
const ConsentCookieName = "authrelay_consent"

type consentClaims struct {
	ApprovedClients []string `json:"approved_clients"`
	jwt.RegisteredClaims
}

// ClientApproved reports whether the request carries a valid consent cookie
// naming clientID. Every failure mode (no cookie, bad signature, expired
// token, wrong algorithm) yields false; a broken cookie simply means the
// consent dialog is shown again.
func ClientApproved(r *http.Request, clientID string, signingKey []byte) bool {
	cookie, err := r.Cookie(ConsentCookieName)
	if err != nil {
		return false
	}

	claims, err := parseConsentCookie(cookie.Value, signingKey)
	if err != nil {
		return false
	}

	for _, approved := range claims.ApprovedClients {
		if approved == clientID {
			return true
		}
	}
	return false
}

// ApproveClient returns a consent cookie whose record includes clientID in
// addition to any clients already approved by a valid cookie on the request.
// An invalid existing cookie is discarded rather than merged.
func ApproveClient(r *http.Request, clientID string, signingKey []byte, ttl time.Duration) (*http.Cookie, error) {
	approved := []string{clientID}
	if cookie, err := r.Cookie(ConsentCookieName); err == nil {
		if claims, err := parseConsentCookie(cookie.Value, signingKey); err == nil {
			for _, existing := range claims.ApprovedClients {
				if existing != clientID {
					approved = append(approved, existing)
				}
			}
		}
	}

	now := time.Now()
	claims := consentClaims{
		ApprovedClients: approved,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     ConsentCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

func parseConsentCookie(value string, signingKey []byte) (*consentClaims, error) {
	claims := &consentClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
