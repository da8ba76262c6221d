// Package session keeps the authenticated session of one user: it signs in
// with the identity provider, exchanges the identity proof for application
// tokens and caches tokens and profile.
//
// A Client is an explicit object owned by its caller; there is no package
// level session. All methods are safe for concurrent use, but racing logins
// are last-writer-wins.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/backend"
	"github.com/spigell/cv-evaluator/internal/identity"
	"github.com/spigell/cv-evaluator/internal/logger"
	"github.com/spigell/cv-evaluator/internal/metrics"
	"github.com/spigell/cv-evaluator/internal/tokenstore"
)

const (
	OpLoginPassword  = "login_password"
	OpLoginFederated = "login_federated"
	OpRegister       = "register"
	OpLogout         = "logout"
	OpRefresh        = "refresh"
)

// DefaultLogoutTimeout bounds the background logout notification.
const DefaultLogoutTimeout = 10 * time.Second

// Exchanger is the backend token-exchange API.
type Exchanger interface {
	Login(ctx context.Context, idToken string) (*backend.TokenPair, error)
	Register(ctx context.Context, idToken string, extra map[string]any) (*backend.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, accessToken string) error
}

type Client struct {
	provider  identity.Provider
	exchanger Exchanger
	store     tokenstore.Store
	logger    *zap.Logger
	metrics   *metrics.Recorder
	now       func() time.Time

	logoutTimeout time.Duration

	mu           sync.RWMutex
	currentUser  backend.User
	accessToken  string
	refreshToken string

	// pending tracks logout notifications still in flight.
	pending sync.WaitGroup
}

type Option func(*Client)

// WithStore writes every state change through to store. Without it the
// session lives only in memory.
func WithStore(store tokenstore.Store) Option {
	return func(c *Client) { c.store = store }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.logger = logger.OrNop(log) }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = recorder }
}

// WithLogoutTimeout changes how long the backend logout notification may take.
func WithLogoutTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.logoutTimeout = timeout
		}
	}
}

// New returns an empty session. Call Restore to load a persisted one.
func New(provider identity.Provider, exchanger Exchanger, opts ...Option) *Client {
	c := &Client{
		provider:  provider,
		exchanger: exchanger,
		logger:    zap.NewNop(),
		now:       time.Now,

		logoutTimeout: DefaultLogoutTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Restore loads the state saved by a previous process. A missing state is not an error.
func (c *Client) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	state, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return nil
		}
		return err
	}
	if state.Empty() {
		return nil
	}

	c.mu.Lock()
	c.accessToken = state.AccessToken
	c.refreshToken = state.RefreshToken
	c.currentUser = state.User.Clone()
	c.mu.Unlock()

	c.logger.Debug("session restored",
		zap.String(logger.FieldUserID, state.User.ID()),
		zap.Bool("authenticated", c.IsAuthenticated()),
	)

	return nil
}

// LoginWithPassword signs in with email and password and returns the user profile.
func (c *Client) LoginWithPassword(ctx context.Context, email, password string) (backend.User, error) {
	log := logger.WithOperation(c.logger, OpLoginPassword, email)

	id, err := c.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, c.fail(log, OpLoginPassword, KindProvider, err)
	}

	pair, err := c.exchanger.Login(ctx, id.IDToken)
	if err != nil {
		return nil, c.fail(log, OpLoginPassword, KindExchange, err)
	}

	return c.establish(ctx, log, OpLoginPassword, pair), nil
}

// LoginWithFederatedProvider signs in through the interactive third-party flow.
func (c *Client) LoginWithFederatedProvider(ctx context.Context) (backend.User, error) {
	log := logger.WithOperation(c.logger, OpLoginFederated, "")

	id, err := c.provider.SignInFederated(ctx)
	if err != nil {
		return nil, c.fail(log, OpLoginFederated, KindProvider, err)
	}

	pair, err := c.exchanger.Login(ctx, id.IDToken)
	if err != nil {
		return nil, c.fail(log, OpLoginFederated, KindExchange, err)
	}

	return c.establish(ctx, log, OpLoginFederated, pair), nil
}

// Register creates the identity and the application account. extra is sent
// to the backend as additional registration fields.
func (c *Client) Register(ctx context.Context, email, password string, extra map[string]any) (backend.User, error) {
	log := logger.WithOperation(c.logger, OpRegister, email)

	id, err := c.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, c.fail(log, OpRegister, KindProvider, err)
	}

	pair, err := c.exchanger.Register(ctx, id.IDToken, extra)
	if err != nil {
		return nil, c.fail(log, OpRegister, KindExchange, err)
	}

	return c.establish(ctx, log, OpRegister, pair), nil
}

// Logout signs out of the provider, notifies the backend without waiting for
// it and clears the session. It always succeeds locally; remote failures are
// only logged.
func (c *Client) Logout(ctx context.Context) {
	log := logger.WithOperation(c.logger, OpLogout, "")

	if err := c.provider.SignOut(ctx); err != nil {
		log.Warn("identity provider sign out failed", zap.Error(err))
	}

	c.mu.Lock()
	accessToken := c.accessToken
	c.accessToken = ""
	c.refreshToken = ""
	c.currentUser = nil
	c.mu.Unlock()

	if accessToken != "" {
		c.notifyLogout(ctx, log, accessToken)
	}

	c.clearStore(ctx, log)
	c.metrics.Observe(OpLogout, nil)

	log.Info("logged out")
}

// RefreshAccessToken mints a new access token from the cached refresh token.
// Any failure clears the whole session. If the session was replaced or
// cleared while the backend call was in flight, the newer session is kept.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	log := logger.WithOperation(c.logger, OpRefresh, "")

	c.mu.RLock()
	refreshToken := c.refreshToken
	c.mu.RUnlock()

	if refreshToken == "" {
		err := &AuthError{Kind: KindNoRefreshToken, Op: OpRefresh}
		c.metrics.Observe(OpRefresh, err)
		return "", err
	}

	accessToken, err := c.exchanger.Refresh(ctx, refreshToken)
	if err != nil {
		if c.clearIfCurrent(refreshToken) {
			c.clearStore(ctx, log)
		}
		return "", c.fail(log, OpRefresh, KindExchange, err)
	}

	c.mu.Lock()
	if c.refreshToken != refreshToken {
		current := c.accessToken
		c.mu.Unlock()

		log.Debug("session changed during refresh, dropping the new token")
		if current == "" {
			err := &AuthError{Kind: KindNoRefreshToken, Op: OpRefresh}
			c.metrics.Observe(OpRefresh, err)
			return "", err
		}
		return current, nil
	}
	c.accessToken = accessToken
	c.mu.Unlock()

	c.persist(ctx, log)
	c.metrics.Observe(OpRefresh, nil)

	log.Debug("access token refreshed", logger.Token("access_token", accessToken))

	return accessToken, nil
}

// AccessToken returns the cached access token or an empty string.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.accessToken
}

// CurrentUser returns a copy of the cached profile or nil.
func (c *Client) CurrentUser() backend.User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.currentUser.Clone()
}

// IsAuthenticated reports whether both an access token and a user are cached.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.accessToken != "" && c.currentUser != nil
}

// Snapshot returns a copy of the current state.
func (c *Client) Snapshot() *tokenstore.State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &tokenstore.State{
		AccessToken:  c.accessToken,
		RefreshToken: c.refreshToken,
		User:         c.currentUser.Clone(),
		UpdatedAt:    c.now().UTC(),
	}
}

// AccessTokenExpiry reads the exp claim of the cached access token. The
// signature is not verified; the value is informational only.
func (c *Client) AccessTokenExpiry() (time.Time, bool) {
	token := c.AccessToken()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}

// Wait blocks until logout notifications still in flight have finished.
func (c *Client) Wait() {
	c.pending.Wait()
}

func (c *Client) establish(ctx context.Context, log *zap.Logger, op string, pair *backend.TokenPair) backend.User {
	user := pair.User.Clone()

	c.mu.Lock()
	c.accessToken = pair.AccessToken
	c.refreshToken = pair.RefreshToken
	c.currentUser = user
	c.mu.Unlock()

	c.persist(ctx, log)
	c.metrics.Observe(op, nil)

	log.Info("session established",
		zap.String(logger.FieldUserID, user.ID()),
		logger.Token("access_token", pair.AccessToken),
	)

	return user.Clone()
}

func (c *Client) fail(log *zap.Logger, op string, kind Kind, err error) error {
	authErr := &AuthError{Kind: kind, Op: op, Err: err}
	c.metrics.Observe(op, authErr)
	log.Debug("session operation failed", zap.Error(authErr))
	return authErr
}

// clearIfCurrent clears the session only if it still holds refreshToken.
func (c *Client) clearIfCurrent(refreshToken string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshToken != refreshToken {
		return false
	}

	c.accessToken = ""
	c.refreshToken = ""
	c.currentUser = nil
	return true
}

// notifyLogout tells the backend in the background. The context keeps its
// values but not its cancellation, so returning from Logout does not abort it.
// The notification is bounded by logoutTimeout instead.
func (c *Client) notifyLogout(ctx context.Context, log *zap.Logger, accessToken string) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.logoutTimeout)

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer cancel()

		err := c.exchanger.Logout(detached, accessToken)
		c.metrics.ObserveLogoutNotification(err)
		if err != nil {
			log.Warn("backend logout notification failed", zap.Error(err))
			return
		}
		log.Debug("backend logout notification sent")
	}()
}

func (c *Client) persist(ctx context.Context, log *zap.Logger) {
	if c.store == nil {
		return
	}

	if err := c.store.Save(ctx, c.Snapshot()); err != nil {
		log.Warn("saving session state failed", zap.Error(err))
	}
}

func (c *Client) clearStore(ctx context.Context, log *zap.Logger) {
	if c.store == nil {
		return
	}

	if err := c.store.Clear(ctx); err != nil {
		log.Warn("clearing session state failed", zap.Error(err))
	}
}
