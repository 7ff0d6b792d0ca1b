package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wanderwise/models"
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies HS256 tokens. Access and refresh tokens use
// separate secrets so one can never stand in for the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source; used by tests to cross expiry boundaries.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) IssueAccess(user *models.User) (string, error) {
	return s.issue(user, s.accessSecret, s.accessTTL)
}

func (s *TokenService) IssueRefresh(user *models.User) (string, error) {
	return s.issue(user, s.refreshSecret, s.refreshTTL)
}

func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, s.accessSecret)
}

func (s *TokenService) VerifyRefresh(token string) (*Claims, error) {
	return s.verify(token, s.refreshSecret)
}

func (s *TokenService) issue(user *models.User, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// verify accepts a token strictly before its expiry instant.
func (s *TokenService) verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
