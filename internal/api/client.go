package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for authenticated calls.
// An empty token means the caller is a guest and the Authorization header
// is omitted.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a plain function to a TokenSource.
type TokenSourceFunc func() string

// Token returns f().
func (f TokenSourceFunc) Token() string { return f() }

// Client talks to the storefront backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	tokens     TokenSource

	// GET-response cache.
	cache    sync.Map
	cacheTTL time.Duration

	logger *slog.Logger
}

// cacheEntry is a cached GET response body with expiry.
type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// NewClient creates a backend client.
// The base URL defaults to the MARKETKIT_API_BASE_URL environment variable;
// options override the defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: os.Getenv("MARKETKIT_API_BASE_URL"),
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// Login exchanges credentials for a bearer token and display name.
// Any failure (transport, non-2xx, missing token field) is an AuthError.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.doRequest(ctx, http.MethodPost, "/auth/login", credentialsRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, &AuthError{Op: "login", Err: err}
	}
	if resp.Token == "" {
		return nil, &AuthError{Op: "login", Message: "response missing token"}
	}
	return &resp, nil
}

// Signup registers an account and returns a bearer token and display name.
// Failure semantics match Login.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.doRequest(ctx, http.MethodPost, "/auth/signup", signupRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, &AuthError{Op: "signup", Err: err}
	}
	if resp.Token == "" {
		return nil, &AuthError{Op: "signup", Message: "response missing token"}
	}
	return &resp, nil
}

// ForgotPassword asks the backend to send a reset OTP to the given email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	var resp statusResponse
	err := c.doRequest(ctx, http.MethodPost, "/auth/forgot-password", emailRequest{Email: email}, &resp)
	if err != nil {
		return &AuthError{Op: "forgot-password", Err: err}
	}
	return nil
}

// VerifyOTP checks a password-reset OTP.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	var resp statusResponse
	err := c.doRequest(ctx, http.MethodPost, "/auth/verify-otp", otpRequest{Email: email, OTP: otp}, &resp)
	if err != nil {
		return &AuthError{Op: "verify-otp", Err: err}
	}
	return nil
}

// ResetPassword sets a new password using a verified OTP.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	var resp statusResponse
	err := c.doRequest(ctx, http.MethodPost, "/auth/reset-password", resetPasswordRequest{
		Email:       email,
		OTP:         otp,
		NewPassword: newPassword,
	}, &resp)
	if err != nil {
		return &AuthError{Op: "reset-password", Err: err}
	}
	return nil
}

// GetCart fetches the authenticated user's server cart.
func (c *Client) GetCart(ctx context.Context) ([]ServerCartItem, error) {
	cacheKey := c.buildCacheKey(http.MethodGet, "/cart")
	if body, ok := c.getFromCache(cacheKey); ok {
		var cached cartResponse
		if err := json.Unmarshal(body, &cached); err == nil {
			return cached.Items, nil
		}
	}

	var resp cartResponse
	if err := c.doRequest(ctx, http.MethodGet, "/cart", nil, &resp); err != nil {
		return nil, wrapTransport(err)
	}

	if c.cacheTTL > 0 {
		if body, err := json.Marshal(resp); err == nil {
			c.putInCache(cacheKey, body)
		}
	}
	return resp.Items, nil
}

// ReplaceCart replaces the server cart wholesale with the given entries.
// An empty slice clears the server cart.
func (c *Client) ReplaceCart(ctx context.Context, entries []CartEntry) error {
	if entries == nil {
		entries = []CartEntry{}
	}
	c.invalidateCache()
	err := c.doRequest(ctx, http.MethodPost, "/cart", replaceCartRequest{Items: entries}, nil)
	return wrapTransport(err)
}

// UpdateCartItem patches the quantity of a single product on the server cart.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	c.invalidateCache()
	path := "/cart/" + url.PathEscape(productID)
	err := c.doRequest(ctx, http.MethodPatch, path, quantityPatch{Quantity: quantity}, nil)
	return wrapTransport(err)
}

// RemoveCartItem deletes a single product from the server cart.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) error {
	c.invalidateCache()
	path := "/cart/" + url.PathEscape(productID)
	err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	return wrapTransport(err)
}

// AddToWishlist adds a product to the authenticated user's wishlist.
func (c *Client) AddToWishlist(ctx context.Context, productID string) error {
	err := c.doRequest(ctx, http.MethodPost, "/wishlist/add", wishlistRequest{ProductID: productID}, nil)
	return wrapTransport(err)
}

// RemoveFromWishlist removes a product from the authenticated user's wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	path := "/wishlist/" + url.PathEscape(productID)
	err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	return wrapTransport(err)
}

// doRequest performs an HTTP request against the backend.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	reqURL := strings.TrimRight(c.baseURL, "/") + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return &APIError{
			Code:   fmt.Sprintf("HTTP_%d", httpResp.StatusCode),
			Status: httpResp.StatusCode,
			Err:    fmt.Errorf("server returned %d: %s", httpResp.StatusCode, string(respBody)),
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// wrapTransport converts transport-level failures into ServerUnreachableError
// and passes HTTP errors through unchanged.
func wrapTransport(err error) error {
	if err == nil {
		return nil
	}
	if isConnectionError(err) {
		return &ServerUnreachableError{Cause: err}
	}
	return err
}

// buildCacheKey hashes method, path, and the current token so a cache entry
// never leaks across accounts.
func (c *Client) buildCacheKey(method, path string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(method)
	_, _ = h.Write([]byte{0}) // separator
	_, _ = h.WriteString(path)
	_, _ = h.Write([]byte{0})
	if c.tokens != nil {
		_, _ = h.WriteString(c.tokens.Token())
	}
	return h.Sum64()
}

// getFromCache retrieves a cached body if it exists and hasn't expired.
func (c *Client) getFromCache(key uint64) ([]byte, bool) {
	if c.cacheTTL <= 0 {
		return nil, false
	}
	val, ok := c.cache.Load(key)
	if !ok {
		return nil, false
	}
	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.cache.Delete(key)
		return nil, false
	}
	return entry.body, true
}

// putInCache stores a response body in the cache.
func (c *Client) putInCache(key uint64, body []byte) {
	c.cache.Store(key, &cacheEntry{
		body:      body,
		expiresAt: time.Now().Add(c.cacheTTL),
	})
}

// invalidateCache drops every cached response. Called on every cart write so
// a following GET observes the server's view.
func (c *Client) invalidateCache() {
	c.cache.Range(func(k, _ any) bool {
		c.cache.Delete(k)
		return true
	})
}
