// Package googleid verifies Google ID tokens for federated login. The auth
// service depends only on the Verifier interface; the concrete implementation
// delegates to Google's public-key validation.
package googleid

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

// ErrInvalidIDToken is returned for any token that fails validation.
var ErrInvalidIDToken = errors.New("invalid id token")

// Identity is the externally-verified identity extracted from an ID token.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// GoogleVerifier validates ID tokens against Google's certificates for the
// configured OAuth client ID.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, ErrInvalidIDToken
	}

	id := &Identity{
		Subject: payload.Subject,
		Email:   stringClaim(payload.Claims, "email"),
		Name:    stringClaim(payload.Claims, "name"),
		Picture: stringClaim(payload.Claims, "picture"),
	}
	if id.Subject == "" || id.Email == "" {
		return nil, ErrInvalidIDToken
	}
	return id, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
