package media

import (
	"chatgraph-backend/internal/apperrors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints LiveKit-compatible access tokens for voice/video
// channels. A token grants room join for a single room, keyed by the
// channel ID, with the caller's display name as identity.
type TokenIssuer struct {
	apiKey    string
	apiSecret []byte
}

type videoGrant struct {
	Room     string `json:"room"`
	RoomJoin bool   `json:"roomJoin"`
}

type mediaClaims struct {
	Video videoGrant `json:"video"`
	Name  string     `json:"name"`
	jwt.RegisteredClaims
}

func NewTokenIssuer(apiKey string, apiSecret string) *TokenIssuer {
	return &TokenIssuer{apiKey: apiKey, apiSecret: []byte(apiSecret)}
}

func (t *TokenIssuer) IssueToken(roomID string, displayName string) (string, error) {
	if roomID == "" || displayName == "" {
		return "", apperrors.InvalidArg("room ID and display name are required")
	}

	currentTime := time.Now().UTC()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mediaClaims{
		Video: videoGrant{
			Room:     roomID,
			RoomJoin: true,
		},
		Name: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.apiKey,
			Subject:   displayName,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			NotBefore: jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(6 * time.Hour)),
		},
	})

	return token.SignedString(t.apiSecret)
}
