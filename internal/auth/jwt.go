package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long an issued credential stays valid.
const DefaultTTL = 3 * time.Hour

var (
	// ErrExpired is returned when a credential is past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrInvalidSignature is returned when a credential cannot be validated.
	ErrInvalidSignature = errors.New("invalid token signature")
)

// Identity is the user a credential was issued to.
type Identity struct {
	Email string `json:"email"`
}

// Claims represents JWT payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 credentials.
type TokenService struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a service signing with key. A zero ttl means DefaultTTL.
func NewTokenService(key, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{key: []byte(key), issuer: issuer, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, mostly for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// TTL returns the validity window of issued credentials.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a credential for identity.
func (s *TokenService) Issue(identity Identity) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

// Verify validates a credential and returns the identity it carries.
func (s *TokenService) Verify(tokenStr string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidSignature
	}
	return Identity{Email: claims.Email}, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpired
	}
	return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
}
