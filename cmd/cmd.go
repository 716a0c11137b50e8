package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/frahmantamala/checkout-payments/internal"
	"github.com/frahmantamala/checkout-payments/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "checkout-payments",
	Short: "Checkout Payments",
	Long:  `Checkout backend for Pix, boleto and credit card payments.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// envBindings maps config keys to the plain environment variables used in
// deployments.
var envBindings = map[string]string{
	"http_server.port":              "PORT",
	"http_server.base_url":          "BASE_URL",
	"http_server.allowed_origins":   "ALLOWED_ORIGINS",
	"database.source":               "DATABASE_URL",
	"security.admin_token_secret":   "ADMIN_TOKEN_SECRET",
	"security.admin_token_duration": "ADMIN_TOKEN_DURATION",
	"observability.logging.level":   "LOG_LEVEL",
	"observability.logging.format":  "LOG_FORMAT",
	"gateway.access_token":          "MP_ACCESS_TOKEN",
	"gateway.base_api_url":          "MP_BASE_API_URL",
	"gateway.notification_url":      "NOTIFICATION_URL",
	"gateway.default_timezone":      "DEFAULT_TIMEZONE",
	"gateway.request_timeout":       "MP_REQUEST_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_server.port", 8080)
	v.SetDefault("http_server.allowed_origins", "*")
	v.SetDefault("http_server.read_header_timeout", 5*time.Second)
	v.SetDefault("http_server.read_timeout", 15*time.Second)
	v.SetDefault("http_server.idle_timeout", 60*time.Second)
	v.SetDefault("http_server.write_timeout", 45*time.Second)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("security.admin_token_duration", time.Hour)

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")

	v.SetDefault("gateway.base_api_url", internal.DefaultGatewayBaseURL)
	v.SetDefault("gateway.default_timezone", internal.DefaultTimezone)
	v.SetDefault("gateway.request_timeout", 30*time.Second)
}

func loadConfig(path string) (*internal.Config, error) {
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	// Check if we're running in Docker environment
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		return internal.LoadConfigFromEnv(), nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// loadConfigAndLogger loads the configuration, runs validate on it and
// initializes the process logger from it.
func loadConfigAndLogger(validate func(*internal.Config) error) (*internal.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	logger.Init(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory containing config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(adminTokenCmd)
	rootCmd.AddCommand(reconcileCmd)
}
