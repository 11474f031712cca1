package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "vinostore-storefront"

type Kind string

const (
	KindGuest    Kind = "guest"
	KindCustomer Kind = "customer"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenMaker struct {
	secret []byte
	issuer string
}

func NewTokenMaker(secret string) *TokenMaker {
	return &TokenMaker{
		secret: []byte(secret),
		issuer: issuer,
	}
}

type Claims struct {
	SessionID  string `json:"session_id"`
	Kind       Kind   `json:"kind"`
	CustomerID string `json:"customer_id,omitempty"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (t *TokenMaker) New(s Session, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		SessionID:  s.ID,
		Kind:       s.Kind,
		CustomerID: s.CustomerID,
		Email:      s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenMaker) Parse(tokenStr string) (Session, error) {
	var c Claims

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil || token == nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}

	if c.SessionID == "" || (c.Kind != KindGuest && c.Kind != KindCustomer) {
		return Session{}, ErrInvalidToken
	}

	return Session{ID: c.SessionID, Kind: c.Kind, CustomerID: c.CustomerID, Email: c.Email}, nil
}
