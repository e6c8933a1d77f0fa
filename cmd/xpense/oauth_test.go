package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln, "http://" + ln.Addr().String() + "/callback"
}

func TestAwaitCode(t *testing.T) {
	ln, url := listen(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		// A callback with the wrong state is ignored.
		if resp, err := http.Get(url + "?state=forged&code=evil"); err == nil {
			resp.Body.Close()
		}
		if resp, err := http.Get(url + "?state=s1&code=good"); err == nil {
			resp.Body.Close()
		}
	}()

	code, err := awaitCode(ctx, ln, "s1")
	require.NoError(t, err)
	assert.Equal(t, "good", code)
}

func TestAwaitCodeDenied(t *testing.T) {
	ln, url := listen(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		if resp, err := http.Get(url + "?error=access_denied"); err == nil {
			resp.Body.Close()
		}
	}()

	_, err := awaitCode(ctx, ln, "s1")
	assert.ErrorContains(t, err, "access_denied")
}

func TestAwaitCodeTimeout(t *testing.T) {
	ln, _ := listen(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := awaitCode(ctx, ln, "s1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSaveToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, saveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var tok oauth2.Token
	require.NoError(t, json.Unmarshal(b, &tok))
	assert.Equal(t, "r", tok.RefreshToken)
}

func TestOAuthInitRequiresClientFile(t *testing.T) {
	setupEnv(t)
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", "")

	_, err := execute(t, "oauth-init")
	assert.ErrorContains(t, err, "GOOGLE_OAUTH_CLIENT_FILE")
}
