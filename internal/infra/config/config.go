package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	StorageMode        string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	Currency          string
	CountryDialPrefix string

	PaymentMode        string
	ProviderTimeout    time.Duration
	MTNBaseURL         string
	MTNSubscriptionKey string
	MTNTargetEnv       string
	OrangeBaseURL      string
	OrangeAuthToken    string
	WebhookSecret      string

	RedisAddr        string
	PaymentRetryMax  int
	PaymentRetryTTL  time.Duration
	ListingsFixtures string
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		StorageMode:        strings.ToLower(getEnv("STORAGE_MODE", "memory")),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "adspace"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		Currency:           strings.ToUpper(getEnv("CURRENCY", "XAF")),
		CountryDialPrefix:  getEnv("COUNTRY_DIAL_PREFIX", "237"),
		PaymentMode:        strings.ToLower(getEnv("PAYMENT_MODE", "mock")),
		MTNBaseURL:         getEnv("MTN_MOMO_BASE_URL", "https://sandbox.momodeveloper.mtn.com"),
		MTNSubscriptionKey: os.Getenv("MTN_MOMO_SUBSCRIPTION_KEY"),
		MTNTargetEnv:       getEnv("MTN_MOMO_TARGET_ENV", "sandbox"),
		OrangeBaseURL:      getEnv("ORANGE_MONEY_BASE_URL", "https://api.orange.com/orange-money-webpay"),
		OrangeAuthToken:    os.Getenv("ORANGE_MONEY_AUTH_TOKEN"),
		WebhookSecret:      os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		ListingsFixtures:   os.Getenv("LISTINGS_FIXTURES"),
	}

	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	providerTimeout, err := parseDurationEnv("PROVIDER_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.ProviderTimeout = providerTimeout

	retryTTL, err := parseDurationEnv("PAYMENT_RETRY_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.PaymentRetryTTL = retryTTL

	retryMax, err := parseIntEnv("PAYMENT_RETRY_MAX", 5)
	if err != nil {
		return Config{}, err
	}
	cfg.PaymentRetryMax = retryMax

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	switch cfg.StorageMode {
	case "memory", "mongo":
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_MODE: %q", cfg.StorageMode)
	}
	if cfg.StorageMode == "mongo" && cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
	}

	switch cfg.PaymentMode {
	case "mock":
	case "live":
		// The mock adapter must never be silently active in production;
		// live mode demands real credentials up front.
		if cfg.MTNSubscriptionKey == "" && cfg.OrangeAuthToken == "" {
			return Config{}, fmt.Errorf("PAYMENT_MODE=live requires provider credentials")
		}
	default:
		return Config{}, fmt.Errorf("invalid PAYMENT_MODE: %q", cfg.PaymentMode)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}
