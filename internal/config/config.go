package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values come from the environment, an optional .env file and an optional
// config.yaml, with defaults that let the binary run locally on its own.
type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	ReadTimeout     time.Duration `mapstructure:"HTTP_READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `mapstructure:"HTTP_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"HTTP_SHUTDOWN_TIMEOUT"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisScoreKey string `mapstructure:"REDIS_SCORE_KEY"`

	KafkaBrokers []string `mapstructure:"-"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	PGDSN         string `mapstructure:"PG_DSN"`
	RunMigrations bool   `mapstructure:"MIGRATE"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	GeminiAPIKey string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string        `mapstructure:"GEMINI_MODEL"`
	AITimeout    time.Duration `mapstructure:"AI_TIMEOUT"`

	PaymentsProvider string        `mapstructure:"PAYMENTS_PROVIDER"`
	StripeAPIKey     string        `mapstructure:"STRIPE_API_KEY"`
	PaymentDelay     time.Duration `mapstructure:"PAYMENT_DELAY"`
	Currency         string        `mapstructure:"CURRENCY"`

	OSRMEndpoint string        `mapstructure:"OSRM_ENDPOINT"`
	ETACacheTTL  time.Duration `mapstructure:"ETA_CACHE_TTL"`

	AutoReplyDelay time.Duration `mapstructure:"AUTO_REPLY_DELAY"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	SeedDemoData   bool          `mapstructure:"SEED_DEMO_DATA"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// ConsumerConfig is the review-event consumer's configuration.
type ConsumerConfig struct {
	KafkaBrokers  []string `mapstructure:"-"`
	KafkaTopic    string   `mapstructure:"KAFKA_TOPIC"`
	KafkaGroup    string   `mapstructure:"KAFKA_GROUP"`
	RedisAddr     string   `mapstructure:"REDIS_ADDR"`
	RedisPassword string   `mapstructure:"REDIS_PASSWORD"`
	RedisScoreKey string   `mapstructure:"REDIS_SCORE_KEY"`
	MetricsAddr   string   `mapstructure:"METRICS_ADDR"`
	LogLevel      string   `mapstructure:"LOG_LEVEL"`
}

var serverDefaults = map[string]any{
	"HTTP_ADDR":             ":8080",
	"HTTP_READ_TIMEOUT":     "5s",
	"HTTP_WRITE_TIMEOUT":    "30s",
	"HTTP_IDLE_TIMEOUT":     "120s",
	"HTTP_SHUTDOWN_TIMEOUT": "15s",
	"REDIS_ADDR":            "",
	"REDIS_PASSWORD":        "",
	"REDIS_SCORE_KEY":       "driver_trust",
	"KAFKA_BROKERS":         "",
	"KAFKA_TOPIC":           "ridelink-events",
	"PG_DSN":                "",
	"MIGRATE":               false,
	"MIGRATIONS_DIR":        "migrations",
	"JWT_SECRET":            "",
	"JWT_TTL":               "24h",
	"GEMINI_API_KEY":        "",
	"GEMINI_MODEL":          "gemini-1.5-flash",
	"AI_TIMEOUT":            "8s",
	"PAYMENTS_PROVIDER":     "simulated",
	"STRIPE_API_KEY":        "",
	"PAYMENT_DELAY":         "2s",
	"CURRENCY":              "inr",
	"OSRM_ENDPOINT":         "",
	"ETA_CACHE_TTL":         "1h",
	"AUTO_REPLY_DELAY":      "1500ms",
	"RATE_LIMIT_RPS":        20.0,
	"RATE_LIMIT_BURST":      40,
	"SEED_DEMO_DATA":        true,
	"LOG_LEVEL":             "info",
}

var consumerDefaults = map[string]any{
	"KAFKA_BROKERS":   "localhost:9092",
	"KAFKA_TOPIC":     "ridelink-events",
	"KAFKA_GROUP":     "ridelink-trust-consumer",
	"REDIS_ADDR":      "localhost:6379",
	"REDIS_PASSWORD":  "",
	"REDIS_SCORE_KEY": "driver_trust",
	"METRICS_ADDR":    ":2112",
	"LOG_LEVEL":       "info",
}

func newViper(defaults map[string]any) *viper.Viper {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

func read(v *viper.Viper, out any) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func LoadServerConfig() (ServerConfig, error) {
	v := newViper(serverDefaults)
	var cfg ServerConfig
	if err := read(v, &cfg); err != nil {
		return cfg, err
	}
	cfg.KafkaBrokers = splitAndTrim(v.GetString("KAFKA_BROKERS"))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.PaymentsProvider = strings.ToLower(strings.TrimSpace(cfg.PaymentsProvider))
	return cfg, cfg.Validate()
}

// Validate reports every problem at once.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, fmt.Errorf("HTTP_ADDR must be set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be set"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be > 0"))
	}
	if c.AITimeout <= 0 {
		errs = append(errs, fmt.Errorf("AI_TIMEOUT must be > 0"))
	}
	switch c.PaymentsProvider {
	case "simulated":
	case "stripe":
		if c.StripeAPIKey == "" {
			errs = append(errs, fmt.Errorf("STRIPE_API_KEY is required when PAYMENTS_PROVIDER=stripe"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENTS_PROVIDER %q", c.PaymentsProvider))
	}
	if c.PaymentDelay < 0 || c.AutoReplyDelay < 0 {
		errs = append(errs, fmt.Errorf("PAYMENT_DELAY and AUTO_REPLY_DELAY must be >= 0"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be > 0"))
	}
	if c.RunMigrations && c.PGDSN == "" {
		errs = append(errs, fmt.Errorf("MIGRATE=true requires PG_DSN"))
	}
	return errors.Join(errs...)
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	v := newViper(consumerDefaults)
	var cfg ConsumerConfig
	if err := read(v, &cfg); err != nil {
		return cfg, err
	}
	cfg.KafkaBrokers = splitAndTrim(v.GetString("KAFKA_BROKERS"))

	var errs []error
	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must be set"))
	}
	if cfg.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("REDIS_ADDR must be set"))
	}
	return cfg, errors.Join(errs...)
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
