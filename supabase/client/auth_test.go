package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInWithPassword(t *testing.T) {
	var gotPath, gotGrant string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotGrant = r.URL.Query().Get("grant_type")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
			"user":          map[string]any{"id": "u1", "email": "maya@example.com"},
		})
	})

	resp, err := c.Auth().SignInWithPassword(context.Background(), "maya@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "/auth/v1/token", gotPath)
	assert.Equal(t, "password", gotGrant)
	assert.Equal(t, "maya@example.com", gotBody["email"])
	assert.Equal(t, "secret", gotBody["password"])

	assert.Equal(t, "at-1", resp.AccessToken)
	assert.Equal(t, "rt-1", resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "u1", resp.User.ID)
}

func TestSignInInvalidCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := c.Auth().SignInWithPassword(context.Background(), "maya@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestSignUpAttachesMetadata(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		// Confirmation required: user but no tokens.
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": "u1", "email": "maya@example.com"},
		})
	})

	resp, err := c.Auth().SignUp(context.Background(), "maya@example.com", "secret", map[string]any{"name": "Maya"})
	require.NoError(t, err)

	assert.Equal(t, "/auth/v1/signup", gotPath)
	data, ok := gotBody["data"].(map[string]any)
	require.True(t, ok, "profile attributes travel under the data key")
	assert.Equal(t, "Maya", data["name"])

	assert.Empty(t, resp.AccessToken, "no session before confirmation")
	require.NotNil(t, resp.User)
}

func TestRefreshToken(t *testing.T) {
	var gotGrant string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotGrant = r.URL.Query().Get("grant_type")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-2",
			"refresh_token": "rt-2",
			"expires_in":    3600,
		})
	})

	resp, err := c.Auth().RefreshToken(context.Background(), "rt-1")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", gotGrant)
	assert.Equal(t, "rt-1", gotBody["refresh_token"])
	assert.Equal(t, "at-2", resp.AccessToken)
}

func TestSignOut(t *testing.T) {
	var gotPath, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.Auth().SignOut(context.Background(), "user-token")
	require.NoError(t, err)

	assert.Equal(t, "/auth/v1/logout", gotPath)
	assert.Equal(t, "Bearer user-token", gotAuth)
}

func TestSignOutRemoteFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"msg":"invalid token"}`))
	})

	err := c.Auth().SignOut(context.Background(), "stale-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

// ============================================================
// Expiry resolution
// ============================================================

// unsignedJWT builds a structurally valid token carrying only an exp
// claim. The signature is empty; only the claims are read locally.
func unsignedJWT(t *testing.T, exp int64) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"exp":%d}`, exp)))
	return header + "." + payload + "."
}

func TestExpiryPrefersExplicitFields(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	r := &AuthResponse{ExpiresAt: now.Add(time.Hour).Unix(), ExpiresIn: 60}
	assert.Equal(t, now.Add(time.Hour).Unix(), r.Expiry(now).Unix(), "expires_at wins")

	r = &AuthResponse{ExpiresIn: 3600}
	assert.Equal(t, now.Add(time.Hour), r.Expiry(now))
}

func TestExpiryFallsBackToTokenClaim(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	exp := now.Add(30 * time.Minute).Unix()

	r := &AuthResponse{AccessToken: unsignedJWT(t, exp)}
	assert.Equal(t, exp, r.Expiry(now).Unix())
}

func TestExpiryUnresolvable(t *testing.T) {
	now := time.Now()
	assert.True(t, (&AuthResponse{}).Expiry(now).IsZero())
	assert.True(t, (&AuthResponse{AccessToken: "not-a-jwt"}).Expiry(now).IsZero())
}
