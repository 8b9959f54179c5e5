package auth

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type TokenType string

const (
	TokenTypeUndefined TokenType = ""
	// TokenTypeSession marks a login whose credential lives only in process memory.
	TokenTypeSession TokenType = "session"
	// TokenTypePersistent marks a remembered login whose credential is stored durably.
	TokenTypePersistent TokenType = "persistent"
)

// Known reports whether t is one of the issued session token types.
func (t TokenType) Known() bool {
	return t == TokenTypeSession || t == TokenTypePersistent
}

var TokenSecretKey = os.Getenv("TOKEN_AUTH_SECRET")

type TokenClaims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// GenerateToken issues a session token for the credential identified by subject.
func GenerateToken(tokenType TokenType, subject string, dur time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(dur)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(TokenSecretKey))
}

func keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		alg, _ := token.Header["alg"].(string)
		return nil, errors.Wrap(ErrInvalidSigningMethod, alg)
	}
	return []byte(TokenSecretKey), nil
}

func VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, keyFunc)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid && claims.Subject != "" && claims.Type.Known() {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// ExpiredClaims returns the claims of a token that carries a valid signature
// but has expired. Any other token, valid or forged, yields false.
func ExpiredClaims(tokenString string) (*TokenClaims, bool) {
	if _, err := VerifyToken(tokenString); !errors.Is(err, jwt.ErrTokenExpired) {
		return nil, false
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, keyFunc, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, false
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || claims.Subject == "" || !claims.Type.Known() {
		return nil, false
	}
	return claims, true
}

func IsValidToken(tokenString string) (*TokenClaims, bool) {
	claims, err := VerifyToken(tokenString)
	if err != nil {
		return nil, false
	}
	return claims, true
}
