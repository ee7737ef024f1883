package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"docforms/internal/config"
)

func TestStaticToken(t *testing.T) {
	ts := NewTokenSource(context.Background(), config.AuthConfig{Token: "abc"})
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
}

func TestSessionSourceWithoutLogin(t *testing.T) {
	cfg := config.AuthConfig{TokenFile: filepath.Join(t.TempDir(), "token.json")}
	_, err := NewTokenSource(context.Background(), cfg).Token()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLoginThenSessionSource(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.Form.Get("grant_type"))
		assert.Equal(t, "taro@example.com", r.Form.Get("username"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"session-token","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(idp.Close)

	cfg := config.AuthConfig{
		TokenURL:  idp.URL,
		ClientID:  "spa",
		TokenFile: filepath.Join(t.TempDir(), "nested", "token.json"),
	}
	ctx := context.Background()
	src := NewTokenSource(ctx, cfg)

	_, err := src.Token()
	require.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = Login(ctx, cfg, "taro@example.com", "pw")
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "session-token", tok.AccessToken)

	require.NoError(t, Logout(cfg))
	require.NoError(t, Logout(cfg))
}

func TestLoginRequiresTokenURL(t *testing.T) {
	_, err := Login(context.Background(), config.AuthConfig{}, "u", "p")
	assert.ErrorIs(t, err, ErrNoTokenURL)
}

func TestExpiredTokenWithoutRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, FileStore{Path: path}.Save(&oauth2.Token{
		AccessToken: "old",
		Expiry:      time.Now().Add(-time.Hour),
	}))

	_, err := NewTokenSource(context.Background(), config.AuthConfig{TokenFile: path}).Token()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}
