// Package client provides GoTrue authentication operations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auth returns an auth client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// AuthClient handles authentication operations against GoTrue.
type AuthClient struct {
	client *Client
}

// SignUp creates a new user. Profile attributes (e.g. the display name)
// are attached as user metadata so the backend's profile trigger can
// populate the profiles row. The resulting session may be unusable until
// the user confirms their email.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthResponse, error) {
	reqURL := fmt.Sprintf("%s/auth/v1/signup", a.client.baseURL)

	payload := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		payload["data"] = metadata
	}

	return a.post(ctx, reqURL, payload)
}

// SignInWithPassword signs in a user with email and password.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*AuthResponse, error) {
	reqURL := fmt.Sprintf("%s/auth/v1/token?grant_type=password", a.client.baseURL)

	return a.post(ctx, reqURL, map[string]any{
		"email":    email,
		"password": password,
	})
}

// RefreshToken exchanges a refresh token for a new session.
func (a *AuthClient) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	reqURL := fmt.Sprintf("%s/auth/v1/token?grant_type=refresh_token", a.client.baseURL)

	return a.post(ctx, reqURL, map[string]any{
		"refresh_token": refreshToken,
	})
}

// SignOut revokes the session behind the access token.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	reqURL := fmt.Sprintf("%s/auth/v1/logout", a.client.baseURL)

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	a.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client.do(req)
	if err != nil {
		return err
	}
	return resp.Error()
}

// GetUser gets the user behind an access token.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	reqURL := fmt.Sprintf("%s/auth/v1/user", a.client.baseURL)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	a.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &user, nil
}

func (a *AuthClient) post(ctx context.Context, reqURL string, payload any) (*AuthResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	a.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var authResp AuthResponse
	if err := resp.JSON(&authResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &authResp, nil
}

func (a *AuthClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", a.client.apiKey)
	req.Header.Set("Authorization", "Bearer "+a.client.apiKey)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

// AuthResponse is the response from token-issuing auth operations.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Expiry resolves the session expiry, preferring the explicit fields and
// falling back to the access token's exp claim. GoTrue versions differ in
// which of these they populate.
func (r *AuthResponse) Expiry(now time.Time) time.Time {
	if r.ExpiresAt > 0 {
		return time.Unix(r.ExpiresAt, 0)
	}
	if r.ExpiresIn > 0 {
		return now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	if exp, ok := tokenExpiry(r.AccessToken); ok {
		return exp
	}
	return time.Time{}
}

// tokenExpiry reads the exp claim without verifying the signature. The
// token is only trusted by the backend; locally we need just the clock.
func tokenExpiry(accessToken string) (time.Time, bool) {
	if accessToken == "" {
		return time.Time{}, false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// User represents a Supabase user.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	Role             string         `json:"role"`
	EmailConfirmedAt string         `json:"email_confirmed_at"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
	AppMetadata      map[string]any `json:"app_metadata"`
	UserMetadata     map[string]any `json:"user_metadata"`
}
