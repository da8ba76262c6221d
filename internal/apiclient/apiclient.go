package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/backend"
	"github.com/spigell/cv-evaluator/internal/logger"
	"github.com/spigell/cv-evaluator/internal/utils"
)

const (
	DefaultURL   = "http://localhost:5002"
	authTestPath = "/api/auth-test"
	userAgent    = "spigell/cv-evaluator"
	contentType  = "application/json"

	userIDHeader  = "X-User-ID"
	userProHeader = "X-User-Pro"
)

// TokenSource is the part of the session the requester needs.
type TokenSource interface {
	AccessToken() string
	RefreshAccessToken(ctx context.Context) (string, error)
	CurrentUser() backend.User
}

// Client sends bearer-authorized requests to the application API.
type Client struct {
	tokens     TokenSource
	logger     *zap.Logger
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
}

func New(baseURL string, tokens TokenSource, log *zap.Logger) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultURL
	}

	return &Client{
		tokens:     tokens,
		logger:     logger.OrNop(log),
		HTTPClient: &http.Client{},
		BaseURL:    baseURL,
		UserAgent:  userAgent,
	}
}

// Do sends body as JSON with the cached access token. On 401 it refreshes the
// token once and retries; a failed refresh is returned as is.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		payload = data
	}

	resp, err := c.send(ctx, method, path, payload, c.tokens.AccessToken())
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	c.logger.Debug("access token rejected, refreshing", zap.String("path", path))

	token, err := c.tokens.RefreshAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh after 401: %w", err)
	}

	return c.send(ctx, method, path, payload, token)
}

// DoJSON is Do followed by decoding a 2xx body into target.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if target == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// TestAuth asks the API to echo what it sees in the bearer token.
func (c *Client) TestAuth(ctx context.Context) (map[string]any, error) {
	userID, premium := c.user()

	var result map[string]any
	err := c.DoJSON(ctx, http.MethodPost, authTestPath, map[string]any{
		"test_message": "Hello from cv-evaluator",
		"userId":       userID,
		"isPro":        premium,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, utils.JoinURL(c.BaseURL, path), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.UserAgent)
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	userID, premium := c.user()
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	req.Header.Set(userProHeader, strconv.FormatBool(premium))

	c.logger.Debug("make request", zap.String("method", method), zap.String("url", req.URL.String()))

	return c.HTTPClient.Do(req)
}

// user returns the id and paid status of the signed in user, if any.
func (c *Client) user() (string, bool) {
	profile, err := c.tokens.CurrentUser().Profile()
	if err != nil {
		c.logger.Debug("decoding user profile", zap.Error(err))
		return "", false
	}
	return profile.ID, profile.Premium()
}
