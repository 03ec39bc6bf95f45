package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := &Claims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type fakeBackend struct {
	refreshResp  *types.LoginResponse
	refreshErr   error
	logoutErr    error
	refreshCalls int
	logoutCalls  int
	gotRefresh   string
}

func (f *fakeBackend) Refresh(_ context.Context, refreshToken string) (*types.LoginResponse, error) {
	f.refreshCalls++
	f.gotRefresh = refreshToken
	return f.refreshResp, f.refreshErr
}

func (f *fakeBackend) Logout(context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := ParseClaims(signToken(t, exp))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "user-1", claims.Subject)

	got, ok := Expiry(signToken(t, exp))
	assert.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, err = ParseClaims("opaque-token")
	assert.ErrorIs(t, err, ErrNotJWT)
	_, err = ParseClaims("")
	assert.Error(t, err)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Expired(signToken(t, now.Add(time.Hour)), now, 0))
	assert.True(t, Expired(signToken(t, now.Add(-time.Minute)), now, 0))
	assert.True(t, Expired(signToken(t, now.Add(10*time.Second)), now, 30*time.Second))
	assert.False(t, Expired("opaque-token", now, 0))
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	store := NewStore(kv)

	tok, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, store.Save(ctx, types.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, store.Save(ctx, types.TokenPair{AccessToken: "a2"}))

	tok, _ = store.AccessToken(ctx)
	assert.Equal(t, "a2", tok)
	ref, _ := store.RefreshToken(ctx)
	assert.Equal(t, "r1", ref)

	raw, err := kv.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a2", raw)

	assert.Error(t, store.Save(ctx, types.TokenPair{}))

	require.NoError(t, store.Clear(ctx))
	tok, _ = store.AccessToken(ctx)
	assert.Empty(t, tok)
	ref, _ = store.RefreshToken(ctx)
	assert.Empty(t, ref)
}

func TestSession_ValidToken(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())
	valid := signToken(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Save(ctx, types.TokenPair{AccessToken: valid}))

	backend := &fakeBackend{}
	s := NewSession(store, backend, zerolog.Nop())
	require.NoError(t, s.Init(ctx))
	assert.True(t, s.IsAuthenticated(ctx))
	assert.Zero(t, backend.refreshCalls)
}

func TestSession_OpaqueTokenIsAuthenticated(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())
	require.NoError(t, store.Save(ctx, types.TokenPair{AccessToken: "opaque"}))

	s := NewSession(store, nil, zerolog.Nop())
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque", tok)
}

func TestSession_RefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())
	expired := signToken(t, time.Now().Add(-time.Hour))
	fresh := signToken(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Save(ctx, types.TokenPair{AccessToken: expired, RefreshToken: "r1"}))

	backend := &fakeBackend{refreshResp: &types.LoginResponse{Data: &types.TokenPair{AccessToken: fresh, RefreshToken: "r2"}}}
	s := NewSession(store, backend, zerolog.Nop())

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, tok)
	assert.Equal(t, "r1", backend.gotRefresh)

	ref, _ := store.RefreshToken(ctx)
	assert.Equal(t, "r2", ref)
}

func TestSession_FailedRefreshClearsTokens(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())
	require.NoError(t, store.Save(ctx, types.TokenPair{AccessToken: signToken(t, time.Now().Add(-time.Hour)), RefreshToken: "r1"}))

	s := NewSession(store, &fakeBackend{refreshErr: errors.New("401")}, zerolog.Nop())
	require.NoError(t, s.Init(ctx))
	assert.False(t, s.IsAuthenticated(ctx))

	tok, _ := store.AccessToken(ctx)
	assert.Empty(t, tok)
}

func TestSession_ExpiredWithoutRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())
	require.NoError(t, store.Save(ctx, types.TokenPair{AccessToken: signToken(t, time.Now().Add(-time.Hour))}))

	backend := &fakeBackend{}
	s := NewSession(store, backend, zerolog.Nop())
	assert.False(t, s.IsAuthenticated(ctx))
	assert.Zero(t, backend.refreshCalls)
}

func TestSession_LoginLogout(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())
	backend := &fakeBackend{logoutErr: errors.New("network down")}
	s := NewSession(store, backend, zerolog.Nop())

	assert.False(t, s.IsAuthenticated(ctx))
	require.NoError(t, s.Login(ctx, &types.LoginResponse{TokenPair: types.TokenPair{AccessToken: "a", RefreshToken: "r"}}))
	assert.True(t, s.IsAuthenticated(ctx))

	// backend failure does not keep the user logged in
	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, 1, backend.logoutCalls)
	assert.False(t, s.IsAuthenticated(ctx))

	require.NoError(t, s.Close())
	_, err := s.Token(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Login(ctx, &types.LoginResponse{}), ErrSessionClosed)
}
