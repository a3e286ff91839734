// Package auth issues and verifies the signed tokens that carry a session,
// and hashes account passwords.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind selects the secret and lifetime used for a token.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims embeds the registered claims plus the account id and token kind.
type Claims struct {
	jwt.RegisteredClaims
	UserID string    `json:"userId"`
	Kind   TokenKind `json:"kind"`
}

// TokenConfig carries the per-kind secrets and lifetimes. Zero values are
// allowed here; they are reported when a token of that kind is first used.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// TokenService signs and verifies access and refresh tokens. Access and
// refresh tokens never share a secret.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{cfg: cfg, now: time.Now}
}

func (s *TokenService) key(kind TokenKind) (signingKey, error) {
	var secret string
	var ttl time.Duration
	switch kind {
	case AccessToken:
		secret, ttl = s.cfg.AccessSecret, s.cfg.AccessTTL
	case RefreshToken:
		secret, ttl = s.cfg.RefreshSecret, s.cfg.RefreshTTL
	default:
		return signingKey{}, common.NewError(common.ErrMisconfigured, "unknown token kind")
	}

	name := strings.ToUpper(string(kind))
	if secret == "" {
		return signingKey{}, common.NewError(common.ErrMisconfigured, name+"_TOKEN_SECRET not configured")
	}
	if ttl <= 0 {
		return signingKey{}, common.NewError(common.ErrMisconfigured, name+"_TOKEN_EXPIRY not configured")
	}
	return signingKey{secret: []byte(secret), ttl: ttl}, nil
}

// Issue returns a signed token of the given kind for userID.
func (s *TokenService) Issue(userID string, kind TokenKind) (string, error) {
	k, err := s.key(kind)
	if err != nil {
		return "", err
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
		},
		UserID: userID,
		Kind:   kind,
	})

	return token.SignedString(k.secret)
}

// Verify checks signature, expiry and kind, and returns the embedded account
// id. It fails with common.ErrTokenExpired or common.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string, kind TokenKind) (string, error) {
	k, err := s.key(kind)
	if err != nil {
		return "", err
	}
	if tokenString == "" {
		return "", common.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Kind != kind || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
