package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the bridge service
type Config struct {
	Environment    string               `mapstructure:"environment"`
	LogLevel       string               `mapstructure:"log_level"`
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	Bridge         BridgeConfig         `mapstructure:"bridge"`
	Solana         SolanaConfig         `mapstructure:"solana"`
	Oracle         OracleConfig         `mapstructure:"oracle"`
	NATS           NATSConfig           `mapstructure:"nats"`
	Email          EmailConfig          `mapstructure:"email"`
	Security       SecurityConfig       `mapstructure:"security"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Retention      RetentionConfig      `mapstructure:"retention"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	QueryTimeout    int    `mapstructure:"query_timeout"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	AccessTTL int    `mapstructure:"access_token_ttl"`
	Issuer    string `mapstructure:"issuer"`
}

// BridgeConfig contains the bridge protocol parameters used at bootstrap and
// by the admin surface.
type BridgeConfig struct {
	Owner         string `mapstructure:"owner"`
	ChainSelector uint64 `mapstructure:"chain_selector"`
	FeeMode       string `mapstructure:"fee_mode"`
	EventPageSize int    `mapstructure:"event_page_size"`
}

// SolanaConfig contains settlement chain connectivity.
type SolanaConfig struct {
	RPCEndpoint    string `mapstructure:"rpc_endpoint"`
	WSEndpoint     string `mapstructure:"ws_endpoint"`
	ProgramID      string `mapstructure:"program_id"`
	SignerKey      string `mapstructure:"signer_key"`
	Commitment     string `mapstructure:"commitment"`
	RequestTimeout int    `mapstructure:"request_timeout"`
}

// OracleConfig contains the price feed configuration for oracle fee mode.
type OracleConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	PriceFeedID      string `mapstructure:"price_feed_id"`
	StalenessSeconds int    `mapstructure:"staleness_seconds"`
	Timeout          int    `mapstructure:"timeout"`
	MaxRetries       int    `mapstructure:"max_retries"`
	RateLimitPerSec  int    `mapstructure:"rate_limit_per_sec"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	Enabled       bool   `mapstructure:"enabled"`
}

type EmailConfig struct {
	Provider  string `mapstructure:"provider"`
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
	AlertTo   string `mapstructure:"alert_to"`
}

type SecurityConfig struct {
	AdminKeyHash string `mapstructure:"admin_key_hash"`
	TOTPSecret   string `mapstructure:"totp_secret"`
	RequireTOTP  bool   `mapstructure:"require_totp"`
	BcryptCost   int    `mapstructure:"bcrypt_cost"`
}

type ReconciliationConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	IntervalMinutes int    `mapstructure:"interval_minutes"`
	AlertThreshold  uint64 `mapstructure:"alert_threshold"`
}

// RetentionConfig bounds the consumed message set.
type RetentionConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CronSpec          string `mapstructure:"cron_spec"`
	MessageMaxAgeDays int    `mapstructure:"message_max_age_days"`
}

type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.rate_limit_per_min", 100)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "bridge_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.max_idle_conns", 25)
	viper.SetDefault("database.conn_max_lifetime", 3600)
	viper.SetDefault("database.query_timeout", 30)
	viper.SetDefault("database.max_retries", 3)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)

	// JWT defaults
	viper.SetDefault("jwt.access_token_ttl", 3600)
	viper.SetDefault("jwt.issuer", "bridge_service")

	// Bridge defaults
	viper.SetDefault("bridge.fee_mode", "fixed")
	viper.SetDefault("bridge.event_page_size", 100)

	// Solana defaults
	viper.SetDefault("solana.rpc_endpoint", "https://api.devnet.solana.com")
	viper.SetDefault("solana.commitment", "confirmed")
	viper.SetDefault("solana.request_timeout", 30)

	// Oracle defaults
	viper.SetDefault("oracle.base_url", "https://hermes.pyth.network")
	viper.SetDefault("oracle.staleness_seconds", 60)
	viper.SetDefault("oracle.timeout", 10)
	viper.SetDefault("oracle.max_retries", 3)
	viper.SetDefault("oracle.rate_limit_per_sec", 10)

	// NATS defaults
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.subject_prefix", "bridge.events")
	viper.SetDefault("nats.enabled", false)

	// Email defaults
	viper.SetDefault("email.provider", "sendgrid")
	viper.SetDefault("email.from_email", "alerts@bridge.local")
	viper.SetDefault("email.from_name", "Bridge Service")

	// Security defaults
	viper.SetDefault("security.require_totp", false)
	viper.SetDefault("security.bcrypt_cost", 12)

	// Reconciliation defaults
	viper.SetDefault("reconciliation.enabled", true)
	viper.SetDefault("reconciliation.interval_minutes", 60)
	viper.SetDefault("reconciliation.alert_threshold", 0)

	// Retention defaults
	viper.SetDefault("retention.enabled", true)
	viper.SetDefault("retention.cron_spec", "0 3 * * *")
	viper.SetDefault("retention.message_max_age_days", 90)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.otlp_endpoint", "localhost:4317")
	viper.SetDefault("tracing.service_name", "bridge_service")
	viper.SetDefault("tracing.sample_ratio", 0.1)
}

func overrideFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		viper.Set("jwt.secret", jwtSecret)
	}

	if owner := os.Getenv("BRIDGE_OWNER"); owner != "" {
		viper.Set("bridge.owner", owner)
	}
	if selector := os.Getenv("BRIDGE_CHAIN_SELECTOR"); selector != "" {
		if s, err := strconv.ParseUint(selector, 10, 64); err == nil {
			viper.Set("bridge.chain_selector", s)
		}
	}
	if feeMode := os.Getenv("BRIDGE_FEE_MODE"); feeMode != "" {
		viper.Set("bridge.fee_mode", feeMode)
	}

	if rpc := os.Getenv("SOLANA_RPC_ENDPOINT"); rpc != "" {
		viper.Set("solana.rpc_endpoint", rpc)
	}
	if ws := os.Getenv("SOLANA_WS_ENDPOINT"); ws != "" {
		viper.Set("solana.ws_endpoint", ws)
	}
	if programID := os.Getenv("SOLANA_PROGRAM_ID"); programID != "" {
		viper.Set("solana.program_id", programID)
	}
	if signerKey := os.Getenv("SOLANA_SIGNER_KEY"); signerKey != "" {
		viper.Set("solana.signer_key", signerKey)
	}

	if oracleURL := os.Getenv("ORACLE_BASE_URL"); oracleURL != "" {
		viper.Set("oracle.base_url", oracleURL)
	}
	if feedID := os.Getenv("ORACLE_PRICE_FEED_ID"); feedID != "" {
		viper.Set("oracle.price_feed_id", feedID)
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		viper.Set("nats.url", natsURL)
		viper.Set("nats.enabled", true)
	}

	if emailKey := os.Getenv("SENDGRID_API_KEY"); emailKey != "" {
		viper.Set("email.api_key", emailKey)
	}
	if alertTo := os.Getenv("ALERT_EMAIL"); alertTo != "" {
		viper.Set("email.alert_to", alertTo)
	}

	if adminKeyHash := os.Getenv("ADMIN_KEY_HASH"); adminKeyHash != "" {
		viper.Set("security.admin_key_hash", adminKeyHash)
	}
	if totpSecret := os.Getenv("TOTP_SECRET"); totpSecret != "" {
		viper.Set("security.totp_secret", totpSecret)
		viper.Set("security.require_totp", true)
	}

	if otlp := os.Getenv("OTLP_ENDPOINT"); otlp != "" {
		viper.Set("tracing.otlp_endpoint", otlp)
		viper.Set("tracing.enabled", true)
	}
}

func validate(config *Config) error {
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if config.Bridge.Owner == "" {
		return fmt.Errorf("bridge owner is required")
	}

	if config.Bridge.FeeMode != "fixed" && config.Bridge.FeeMode != "oracle" {
		return fmt.Errorf("bridge fee mode must be fixed or oracle, got %q", config.Bridge.FeeMode)
	}

	if config.Bridge.FeeMode == "oracle" && config.Oracle.PriceFeedID == "" {
		return fmt.Errorf("oracle price feed id is required in oracle fee mode")
	}

	return nil
}
