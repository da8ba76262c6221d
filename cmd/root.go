package cmd

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-evaluator/internal/apiclient"
	"github.com/spigell/cv-evaluator/internal/backend"
)

const (
	app = "cv-evaluator"
)

type Config struct {
	Backend     *BackendConfig      `mapstructure:"backend"`
	Identity    *IdentityConfig     `mapstructure:"identity"`
	Store       *StoreConfig        `mapstructure:"store"`
	API         *APIConfig          `mapstructure:"api"`
	Services    []apiclient.Service `mapstructure:"services"`
	MetricsFile string              `mapstructure:"metrics-file"`
}

type BackendConfig struct {
	URL       string `mapstructure:"url"`
	UserAgent string `mapstructure:"user-agent"`
}

type IdentityConfig struct {
	APIKeyFile string        `mapstructure:"api-key-file"`
	Google     *GoogleConfig `mapstructure:"google"`
}

type GoogleConfig struct {
	ClientID         string `mapstructure:"client-id"`
	ClientSecretFile string `mapstructure:"client-secret-file"`
}

type StoreConfig struct {
	Kind  string       `mapstructure:"kind"`
	Path  string       `mapstructure:"path"`
	Redis *RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type APIConfig struct {
	URL string `mapstructure:"url"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-evaluator signs you in to the CV evaluation service and keeps the session",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("identity.api-key-file", "CV_EVALUATOR_API_KEY_FILE"); err != nil {
		log.Fatalf("binding CV_EVALUATOR_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-evaluator.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("backend.url", backend.DefaultURL)
	viper.SetDefault("api.url", apiclient.DefaultURL)
	viper.SetDefault("store.kind", storeFile)
	viper.SetDefault("store.path", defaultSessionPath())
	viper.SetDefault("services", []map[string]any{
		{"name": "RAG/Chatbot", "url": "http://localhost:5002/api/status", "required": true},
		{"name": "Interview", "url": "http://localhost:5005/health"},
		{"name": "CV Evaluation", "url": "http://localhost:5000/health"},
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit file the defaults are enough; a broken config is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Backend == nil {
		config.Backend = &BackendConfig{}
	}
	if config.Identity == nil {
		config.Identity = &IdentityConfig{}
	}
	if config.Store == nil {
		config.Store = &StoreConfig{}
	}
	if config.API == nil {
		config.API = &APIConfig{}
	}

	return config, nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, app, "session.json")
}
