package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	MaxOpenConns int
	MaxIdleConns int
}

// StellarConfig selects the settlement network. Network must be testnet or
// public; the passphrase and default horizon endpoint follow from it.
type StellarConfig struct {
	Network       string
	HorizonURL    string
	BaseFee       int64
	HTTPTimeout   time.Duration
	TimeBounds    time.Duration
	NativeReserve decimal.Decimal
}

type QueueConfig struct {
	URL          string
	Exchange     string
	QueueName    string
	ReconcileKey string
	MaxAttempts  int
}

type SecurityConfig struct {
	WalletMasterKey string
}

// SweeperConfig controls the batch runner. StaleAge is how old a pending
// transaction must be before the sweeper re-drives its reconciliation.
type SweeperConfig struct {
	Interval time.Duration
	StaleAge time.Duration
}

type RemittanceConfig struct {
	FeePercent decimal.Decimal
}

type Config struct {
	DB         DBConfig
	Stellar    StellarConfig
	Queue      QueueConfig
	Security   SecurityConfig
	Sweeper    SweeperConfig
	Remittance RemittanceConfig
	HTTPPort   string
}

// Load reads configuration from the environment, optionally seeded from
// config.env. A missing file is fine; missing required keys are not.
func Load() (*Config, error) {
	if err := godotenv.Load("config.env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load config.env: %w", err)
	}

	cfg := &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "remit"),
		},
		Stellar: StellarConfig{
			Network:    getEnv("STELLAR_NETWORK", "testnet"),
			HorizonURL: os.Getenv("STELLAR_HORIZON_URL"),
		},
		Queue: QueueConfig{
			URL:          os.Getenv("AMQP_URL"),
			Exchange:     getEnv("AMQP_EXCHANGE", "remit.events"),
			QueueName:    getEnv("AMQP_RECONCILE_QUEUE", "reconcile_transactions"),
			ReconcileKey: "transaction.reconcile",
		},
		Security: SecurityConfig{
			WalletMasterKey: os.Getenv("WALLET_MASTER_KEY"),
		},
		HTTPPort: getEnv("HTTP_PORT", "8080"),
	}

	var err error
	if cfg.DB.Port, err = envInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.DB.MaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.DB.MaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}

	if cfg.Stellar.Network != "testnet" && cfg.Stellar.Network != "public" {
		return nil, fmt.Errorf("STELLAR_NETWORK must be testnet or public, got %q", cfg.Stellar.Network)
	}
	if cfg.Stellar.BaseFee, err = envInt64("STELLAR_BASE_FEE", 100); err != nil {
		return nil, err
	}
	httpTimeout, err := envInt("STELLAR_HTTP_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.Stellar.HTTPTimeout = time.Duration(httpTimeout) * time.Second
	timeBounds, err := envInt("STELLAR_TIMEBOUNDS_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.Stellar.TimeBounds = time.Duration(timeBounds) * time.Minute
	if cfg.Stellar.NativeReserve, err = envDecimal("STELLAR_NATIVE_RESERVE", "2"); err != nil {
		return nil, err
	}

	if cfg.Queue.URL == "" {
		return nil, fmt.Errorf("AMQP_URL is required")
	}
	if cfg.Queue.MaxAttempts, err = envInt("RECONCILE_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}

	if cfg.Security.WalletMasterKey == "" {
		return nil, fmt.Errorf("WALLET_MASTER_KEY is required")
	}

	sweepInterval, err := envInt("SWEEP_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.Sweeper.Interval = time.Duration(sweepInterval) * time.Second
	staleAge, err := envInt("SWEEP_STALE_AGE_SECONDS", 600)
	if err != nil {
		return nil, err
	}
	cfg.Sweeper.StaleAge = time.Duration(staleAge) * time.Second

	if cfg.Remittance.FeePercent, err = envDecimal("REMITTANCE_FEE_PERCENT", "1"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return value, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return value, nil
}

func envDecimal(key, fallback string) (decimal.Decimal, error) {
	raw := os.Getenv(key)
	if raw == "" {
		raw = fallback
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal, got %q", key, raw)
	}
	return value, nil
}
