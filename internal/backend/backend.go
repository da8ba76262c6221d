package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/logger"
)

const (
	DefaultURL = "http://localhost:5000"
	userAgent  = "spigell/cv-evaluator"

	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	RefreshPath  = "/auth/refresh"
	LogoutPath   = "/auth/logout"

	firebaseTokenField = "firebase_token"
)

var errNoAccessToken = errors.New("backend response has no access token")

// TokenPair is the body returned by the login and register endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Client talks to the application backend token-exchange endpoints.
// No timeout is set on HTTPClient; callers bound calls with the context.
type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

func New(baseURL string, log *zap.Logger) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultURL
	}

	return &Client{
		logger:     logger.OrNop(log),
		HTTPClient: &http.Client{},
		UserAgent:  userAgent,
		BaseURL:    baseURL,
	}
}

// Login exchanges an identity proof for an application token pair.
func (c *Client) Login(ctx context.Context, idToken string) (*TokenPair, error) {
	return c.exchange(ctx, LoginPath, map[string]any{firebaseTokenField: idToken})
}

// Register exchanges an identity proof for a token pair and creates the
// application user. Extra fields are sent next to the identity proof;
// they can not replace it.
func (c *Client) Register(ctx context.Context, idToken string, extra map[string]any) (*TokenPair, error) {
	payload := make(map[string]any, len(extra)+1)
	for key, value := range extra {
		payload[key] = value
	}
	payload[firebaseTokenField] = idToken

	return c.exchange(ctx, RegisterPath, payload)
}

// Refresh mints a new access token from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var response refreshResponse
	if err := c.postJSON(ctx, RefreshPath, map[string]any{"refresh_token": refreshToken}, "", &response); err != nil {
		return "", err
	}

	if strings.TrimSpace(response.AccessToken) == "" {
		return "", errNoAccessToken
	}

	return response.AccessToken, nil
}

// Logout tells the backend the access token is no longer used. The response body is ignored.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.postJSON(ctx, LogoutPath, nil, accessToken, nil)
}

func (c *Client) exchange(ctx context.Context, path string, payload map[string]any) (*TokenPair, error) {
	var pair TokenPair
	if err := c.postJSON(ctx, path, payload, "", &pair); err != nil {
		return nil, err
	}

	if strings.TrimSpace(pair.AccessToken) == "" {
		return nil, errNoAccessToken
	}

	if pair.User == nil {
		return nil, errors.New("backend response has no user")
	}

	return &pair, nil
}
