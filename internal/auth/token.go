package auth

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
)

// Token types, carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const revokedKeyPrefix = "revoked:"

// Claims are the JWT claims of access and refresh tokens.
type Claims struct {
	UserID   uint64 `json:"uid"`
	Username string `json:"username"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"` // seconds until the access token expires
}

// RevocationStore remembers revoked refresh tokens until they expire.
// fiber.Storage implementations satisfy it.
type RevocationStore interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
}

// RefreshClaimer marks a key as taken unless it already is, in one atomic
// step. It reports false when the key was taken before.
type RefreshClaimer interface {
	Claim(key string, exp time.Duration) (bool, error)
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithRefreshClaimer sets the store that makes refresh tokens single use.
func WithRefreshClaimer(c RefreshClaimer) TokenOption {
	return func(t *TokenIssuer) {
		if c != nil {
			t.claimer = c
		}
	}
}

// TokenIssuer signs and verifies HS256 tokens. Access and refresh tokens use
// their own secret and ttl.
type TokenIssuer struct {
	cfg     config.Auth
	revoked RevocationStore
	claimer RefreshClaimer
	now     func() time.Time
}

// NewTokenIssuer creates a token issuer. Without WithRefreshClaimer the
// revocation store claims refresh tokens itself when it can, otherwise
// claims are serialized in process.
func NewTokenIssuer(cfg config.Auth, revoked RevocationStore, opts ...TokenOption) (*TokenIssuer, error) {
	if revoked == nil {
		return nil, ErrNilRevocationStore
	}

	t := &TokenIssuer{cfg: cfg, revoked: revoked, now: time.Now}

	if c, ok := revoked.(RefreshClaimer); ok {
		t.claimer = c
	} else {
		t.claimer = &lockedClaimer{store: revoked}
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Issue signs a new access and refresh token for user.
func (t *TokenIssuer) Issue(user *models.User) (*TokenPair, error) {
	access, err := t.sign(user, TokenTypeAccess, t.cfg.AccessSecret, t.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := t.sign(user, TokenTypeRefresh, t.cfg.RefreshSecret, t.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(t.cfg.AccessTTL.Seconds()),
	}, nil
}

// VerifyAccess checks signature, expiry and type of an access token.
func (t *TokenIssuer) VerifyAccess(token string) (*Claims, error) {
	return t.verify(token, TokenTypeAccess, t.cfg.AccessSecret)
}

// VerifyRefresh checks a refresh token and rejects revoked ones.
func (t *TokenIssuer) VerifyRefresh(token string) (*Claims, error) {
	claims, err := t.verify(token, TokenTypeRefresh, t.cfg.RefreshSecret)
	if err != nil {
		return nil, err
	}

	revoked, err := t.revoked.Get(revokedKeyPrefix + claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}

	if revoked != nil {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	return claims, nil
}

// Revoke invalidates a refresh token for the rest of its lifetime.
func (t *TokenIssuer) Revoke(refreshToken string) error {
	claims, err := t.VerifyRefresh(refreshToken)
	if err != nil {
		return err
	}

	ttl := claims.ExpiresAt.Sub(t.now())
	if ttl <= 0 {
		return nil
	}

	if err := t.revoked.Set(revokedKeyPrefix+claims.ID, []byte("1"), ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

// Consume verifies a refresh token and uses it up. Of concurrent calls with
// the same token exactly one succeeds.
func (t *TokenIssuer) Consume(refreshToken string) (*Claims, error) {
	claims, err := t.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	key := revokedKeyPrefix + claims.ID

	ttl := claims.ExpiresAt.Sub(t.now())
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
	}

	claimed, err := t.claimer.Claim(key, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to claim refresh token: %w", err)
	}

	if !claimed {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	if any(t.claimer) != any(t.revoked) {
		if err := t.revoked.Set(key, []byte("1"), ttl); err != nil {
			return nil, fmt.Errorf("failed to revoke token: %w", err)
		}
	}

	return claims, nil
}

// lockedClaimer claims keys of a store without an atomic insert.
type lockedClaimer struct {
	mu    sync.Mutex
	store RevocationStore
}

func (l *lockedClaimer) Claim(key string, exp time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	val, err := l.store.Get(key)
	if err != nil {
		return false, err //nolint:wrapcheck
	}

	if val != nil {
		return false, nil
	}

	return true, l.store.Set(key, []byte("1"), exp) //nolint:wrapcheck
}

func (t *TokenIssuer) sign(user *models.User, typ, secret string, ttl time.Duration) (string, error) {
	now := t.now()

	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.cfg.Issuer,
			Subject:   strconv.FormatUint(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}

	return signed, nil
}

func (t *TokenIssuer) verify(token, typ, secret string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := new(Claims)

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Type != typ || claims.UserID == 0 {
		return nil, fmt.Errorf("%w: wrong token type, want %s", ErrInvalidToken, typ)
	}

	return claims, nil
}
