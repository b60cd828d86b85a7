package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of a QuickTalk access token.
type Payload struct {
	jwt.StandardClaims

	// UserID is the identity the token was issued to.
	UserID string `json:"userId"`
}
