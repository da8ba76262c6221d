package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/backend"
	"github.com/spigell/cv-evaluator/internal/identity"
	"github.com/spigell/cv-evaluator/internal/logger"
	"github.com/spigell/cv-evaluator/internal/metrics"
	"github.com/spigell/cv-evaluator/internal/secrets"
	"github.com/spigell/cv-evaluator/internal/session"
	"github.com/spigell/cv-evaluator/internal/tokenstore"
)

const (
	storeMemory = "memory"
	storeFile   = "file"
	storeRedis  = "redis"
)

// runtime bundles what every session command needs.
type runtime struct {
	ctx     context.Context
	config  *Config
	logger  *zap.Logger
	session *session.Client
	metrics *metrics.Recorder
	// firebase is nil when the provider is not configured and not required.
	firebase *identity.Firebase
}

// setup builds the logger, reads the config and restores the session.
// Errors are fatal, like in the rest of the cli. Only commands that sign in
// need the identity provider; the others run without an api key.
func setup(needsProvider bool) *runtime {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting the cv-evaluator",
		zap.String("version", version),
		zap.String("backend", config.Backend.URL),
		zap.String("store", config.Store.Kind),
	)

	provider, firebase, err := sessionProvider(config.Identity, needsProvider, logger)
	if err != nil {
		logger.Fatal(
			"configuring the identity provider",
			zap.Error(err),
			zap.String("hint", "set CV_EVALUATOR_API_KEY_FILE environment variable or the 'identity.api-key-file' key in the configuration file"),
		)
	}

	store, err := newStore(config.Store)
	if err != nil {
		logger.Fatal("configuring the session store", zap.Error(err))
	}
	if file, ok := store.(*tokenstore.File); ok {
		logger.Debug("using the session file", zap.String("path", file.Path()))
	}

	exchanger := backend.New(config.Backend.URL, logger)
	if config.Backend.UserAgent != "" {
		exchanger.UserAgent = config.Backend.UserAgent
	}

	recorder := metrics.New()

	client := session.New(provider, exchanger,
		session.WithStore(store),
		session.WithLogger(logger),
		session.WithMetrics(recorder),
	)

	if err := client.Restore(ctx); err != nil {
		logger.Warn("restoring the previous session failed, starting empty", zap.Error(err))
	}

	return &runtime{
		ctx:     ctx,
		config:  config,
		logger:  logger,
		session: client,
		metrics: recorder,

		firebase: firebase,
	}
}

// finish waits for background notifications and writes metrics if asked to.
func (r *runtime) finish() {
	r.session.Wait()

	if r.config.MetricsFile == "" {
		return
	}

	if err := r.metrics.WriteTextfile(r.config.MetricsFile); err != nil {
		r.logger.Warn("writing metrics", zap.Error(err), zap.String("filename", r.config.MetricsFile))
	}
}

// sessionProvider returns the configured provider. When it is not required a
// configuration error only disables signing in.
func sessionProvider(cfg *IdentityConfig, required bool, log *zap.Logger) (identity.Provider, *identity.Firebase, error) {
	firebase, err := newProvider(cfg, log)
	if err == nil {
		return firebase, firebase, nil
	}
	if required {
		return nil, nil, err
	}

	log.Debug("identity provider is not configured, signing in is disabled", zap.Error(err))
	return &identity.Unavailable{Err: err}, nil, nil
}

func newProvider(cfg *IdentityConfig, log *zap.Logger) (*identity.Firebase, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name: "firebase api key",
		File: cfg.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}

	provider, err := identity.NewFirebase(apiKey, log)
	if err != nil {
		return nil, err
	}

	if cfg.Google != nil && strings.TrimSpace(cfg.Google.ClientID) != "" {
		secret, err := secrets.Load(secrets.Source{
			Name: "google client secret",
			File: cfg.Google.ClientSecretFile,
		})
		if err != nil {
			return nil, err
		}

		provider.Federated = identity.NewGoogleFlow(cfg.Google.ClientID, secret, printURL, log)
	}

	return provider, nil
}

func newStore(cfg *StoreConfig) (tokenstore.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case storeMemory:
		return tokenstore.NewMemory(), nil
	case "", storeFile:
		return tokenstore.NewFile(cfg.Path)
	case storeRedis:
		if cfg.Redis == nil || cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("store.redis.addr is required for the redis store")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return tokenstore.NewRedis(rdb, cfg.Redis.Key, cfg.Redis.TTL)
	default:
		return nil, fmt.Errorf("unsupported store kind: %s", cfg.Kind)
	}
}

func printURL(url string) error {
	_, err := fmt.Printf("Open the following URL in your browser to sign in:\n\n  %s\n\n", url)
	return err
}
