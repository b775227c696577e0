package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
)

// memStore is a map backed RevocationStore.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.data[key], nil
}

func (m *memStore) Set(key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = val

	return nil
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)

	return nil
}

func testAuthConfig() config.Auth {
	return config.Auth{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "rbac-test",
	}
}

func newTestIssuer(t *testing.T) (*TokenIssuer, *memStore) {
	t.Helper()

	store := newMemStore()
	issuer, err := NewTokenIssuer(testAuthConfig(), store)
	require.NoError(t, err)

	return issuer, store
}

func TestNewTokenIssuerNilStore(t *testing.T) {
	_, err := NewTokenIssuer(testAuthConfig(), nil)
	assert.ErrorIs(t, err, ErrNilRevocationStore)
}

func TestIssueAndVerify(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	user := &models.User{ID: 7, Username: "alice"}

	pair, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)

	claims, err = issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
}

func TestTokenTypesDoNotMix(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	pair, err := issuer.Issue(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.VerifyRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestExpiredToken(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	pair, err := issuer.Issue(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)

	issuer.now = time.Now

	_, err = issuer.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err, "refresh ttl outlives the access ttl")
}

func TestForeignSignature(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	cfg := testAuthConfig()
	cfg.AccessSecret = "other"
	other, err := NewTokenIssuer(cfg, newMemStore())
	require.NoError(t, err)

	pair, err := other.Issue(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.VerifyAccess("")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.VerifyAccess("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeRefreshToken(t *testing.T) {
	issuer, store := newTestIssuer(t)

	pair, err := issuer.Issue(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(pair.RefreshToken))
	assert.Len(t, store.data, 1)

	_, err = issuer.VerifyRefresh(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.VerifyAccess(pair.AccessToken)
	assert.NoError(t, err, "access tokens are short lived and not revoked")
}

func TestConsumeIsSingleUse(t *testing.T) {
	issuer, store := newTestIssuer(t)

	pair, err := issuer.Issue(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)

	const callers = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := issuer.Consume(pair.RefreshToken); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrInvalidToken)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, granted)
	assert.Len(t, store.data, 1)

	_, err = issuer.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// claimOnce records claims apart from the revocation store.
type claimOnce struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (c *claimOnce) Claim(key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keys[key] {
		return false, nil
	}

	c.keys[key] = true

	return true, nil
}

func TestConsumeWithRefreshClaimer(t *testing.T) {
	store := newMemStore()
	claims := &claimOnce{keys: map[string]bool{}}

	issuer, err := NewTokenIssuer(testAuthConfig(), store, WithRefreshClaimer(claims))
	require.NoError(t, err)

	pair, err := issuer.Issue(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)

	_, err = issuer.Consume(pair.RefreshToken)
	require.NoError(t, err)
	assert.Len(t, claims.keys, 1)
	assert.Len(t, store.data, 1, "the used token is revoked in the revocation store too")

	_, err = issuer.Consume(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
