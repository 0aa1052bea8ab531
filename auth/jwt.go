package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultTokenTTL is the lifetime of user tokens when JWTConfig.TTL is zero.
const DefaultTokenTTL = 24 * time.Hour

// DefaultIssuer is used when JWTConfig.Issuer is empty.
const DefaultIssuer = "seedrepo"

// minSecretLen is the shortest accepted HMAC key.
const minSecretLen = 32

// JWTConfig holds configuration for user token signing and validation.
type JWTConfig struct {
	// Secret is the HMAC signing key (must be at least 32 bytes).
	Secret []byte

	// Issuer is set on issued tokens and required on validated ones.
	Issuer string

	// TTL is the token lifetime.
	TTL time.Duration
}

func (c JWTConfig) ttl() time.Duration {
	if c.TTL == 0 {
		return DefaultTokenTTL
	}
	return c.TTL
}

func (c JWTConfig) issuer() string {
	if c.Issuer == "" {
		return DefaultIssuer
	}
	return c.Issuer
}

// UserClaims identifies the user a run-status request acts for.
// Subject is the user id that owns runs in the ledger.
type UserClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// UserID returns the token subject.
func (c *UserClaims) UserID() string {
	return c.Subject
}

// IssueUserToken signs a token for userID.
func IssueUserToken(cfg JWTConfig, userID, email string) (string, error) {
	if len(cfg.Secret) < minSecretLen {
		return "", ErrSecretTooShort
	}
	if userID == "" {
		return "", ErrMissingSubject
	}

	tokenID, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	now := time.Now()
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.issuer(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ttl())),
			ID:        tokenID,
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

// ValidateUserToken parses and validates a token issued by IssueUserToken.
func ValidateUserToken(cfg JWTConfig, tokenString string) (*UserClaims, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, ErrSecretTooShort
	}

	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return cfg.Secret, nil
	}, jwt.WithIssuer(cfg.issuer()))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
