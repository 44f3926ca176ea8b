// Package identity resolves the current storefront user for discount exclusion.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"Storefront/internal/catalog"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoPhone      = errors.New("token has no phone claim")
)

const issuer = "storefront-auth"

type TokenMaker struct {
	secret []byte
}

func NewTokenMaker(secret string) *TokenMaker {
	return &TokenMaker{secret: []byte(secret)}
}

// Claims is what the login flow signs once the phone number is verified.
type Claims struct {
	UserID string `json:"user_id"`
	Phone  string `json:"phone"`
	jwt.RegisteredClaims
}

func (t *TokenMaker) New(userID, phone string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: userID,
		Phone:  phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenMaker) Parse(tokenStr string) (Claims, error) {
	var c Claims

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil || token == nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if catalog.NormalizePhone(c.Phone) == "" {
		return Claims{}, ErrNoPhone
	}

	return c, nil
}
