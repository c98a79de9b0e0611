package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs session tokens returned by register/login. Token
// validation on the transport side is a collaborator concern; the core
// only issues them.
type TokenIssuer struct {
	key      []byte
	duration time.Duration
}

type SessionClaims struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	jwt.RegisteredClaims
}

func NewTokenIssuer(key []byte, duration time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, duration: duration}
}

func (t *TokenIssuer) Generate(userID, userName string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID:   userID,
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-hub",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

func (t *TokenIssuer) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
