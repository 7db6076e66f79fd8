package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenSubjectGone means the token verified but its account was removed.
	ErrTokenSubjectGone = errors.New("token subject no longer exists")
)

// userLookupTimeout bounds the account check made on every authenticated request.
const userLookupTimeout = 2 * time.Second

// sessionClaims names the account only. Timezone and grace hour are read
// from the user store on every request.
type sessionClaims struct {
	jwt.RegisteredClaims
}

type TokenServiceOption func(*TokenService)

// WithTokenClock replaces the wall clock used to stamp and verify tokens.
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		s.now = now
	}
}

type TokenService struct {
	secretKey     []byte
	issuer        string
	tokenDuration time.Duration
	userRepo      domain.UserRepository
	now           func() time.Time
}

func NewTokenService(secretKey string, issuer string, tokenDuration time.Duration, userRepo domain.UserRepository, opts ...TokenServiceOption) *TokenService {
	s := &TokenService{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		tokenDuration: tokenDuration,
		userRepo:      userRepo,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateToken signs an HS256 session token for userID with a fresh jti.
func (s *TokenService) GenerateToken(userID string) (string, error) {
	now := s.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("token service: failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature, issuer and expiry of tokenString and
// loads the account it names. Failures of the token itself wrap
// ErrInvalidToken; a removed account yields ErrTokenSubjectGone; any other
// error comes from the user store.
func (s *TokenService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	ctx, cancel := context.WithTimeout(ctx, userLookupTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, ErrTokenSubjectGone
	}
	if err != nil {
		return nil, fmt.Errorf("token service: load user: %w", err)
	}
	return user, nil
}
