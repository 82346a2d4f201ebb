package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService signs and verifies HS256 bearer tokens.
type TokenService struct {
	Secret   []byte
	Issuer   string
	Duration time.Duration
}

type Claims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"nama_lengkap,omitempty"`
	Roles  []string `json:"peran"`
	jwt.RegisteredClaims
}

func NewTokenService(secret, issuer string, duration time.Duration) TokenService {
	return TokenService{Secret: []byte(secret), Issuer: issuer, Duration: duration}
}

// Sign issues a token for p. Used by the admin CLI and tests; login is handled elsewhere.
func (ts TokenService) Sign(p *Principal) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ts.Duration)

	claims := Claims{
		UserID: p.UserID.String(),
		Name:   p.Name,
		Roles:  p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Subject:   p.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

func (ts TokenService) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if ts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.Issuer))
	}
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return ts.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Authenticate parses a token and turns its claims into a Principal.
func (ts TokenService) Authenticate(tokenString string) (*Principal, error) {
	claims, err := ts.Parse(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user_id claim", ErrUnauthorized)
	}
	return NewPrincipal(userID, claims.Name, claims.Roles), nil
}
