package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/planora/planora/auth"
)

// API is the raw HTTP surface of the auth endpoints. It performs exactly
// one request per call; retries and state live in the Orchestrator.
type API struct {
	baseURL string
	http    *http.Client
}

// APIOption configures an API
type APIOption func(*API)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) {
		if c != nil {
			a.http = c
		}
	}
}

// NewAPI creates a client rooted at baseURL, e.g. "https://api.example.com".
func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Credentials for login.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Registration payload for creating an account.
type Registration struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the body of a successful login or registration.
type AuthResult struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (r AuthResult) TokenPair() auth.TokenPair {
	return auth.TokenPair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

// Login exchanges credentials for a token pair.
func (a *API) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	out := &AuthResult{}
	if err := a.post(ctx, "/auth/login", creds, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates an account and logs it in.
func (a *API) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	out := &AuthResult{}
	if err := a.post(ctx, "/auth/register", reg, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResult struct {
	AccessToken string `json:"access_token"`
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself stays valid, only the access token is replaced.
func (a *API) Refresh(ctx context.Context, refreshToken string) (string, error) {
	out := &refreshResult{}
	if err := a.post(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, "", out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// Logout retires the session behind the refresh token on the server.
func (a *API) Logout(ctx context.Context, accessToken, refreshToken string) error {
	return a.post(ctx, "/auth/logout", refreshRequest{RefreshToken: refreshToken}, accessToken, nil)
}

type meResult struct {
	User User `json:"user"`
}

// Me fetches the account behind the access token.
func (a *API) Me(ctx context.Context, accessToken string) (*User, error) {
	out := &meResult{}
	if err := a.get(ctx, "/auth/me", accessToken, out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (a *API) post(ctx context.Context, path string, payload any, accessToken string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return AsAuthError(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return AsAuthError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	return a.do(req, accessToken, out)
}

func (a *API) get(ctx context.Context, path string, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return AsAuthError(err)
	}

	return a.do(req, accessToken, out)
}

func (a *API) do(req *http.Request, accessToken string, out any) error {
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyResponse(resp, body)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return AsAuthError(fmt.Errorf("decode response: %w", err))
	}

	return nil
}
