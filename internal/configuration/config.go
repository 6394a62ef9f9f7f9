package configuration

import (
	"github.com/BurntSushi/toml"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"
	"time"
)

type Config struct {
	ServerAddress      string
	DatabaseURI        string
	RedisAddress       string
	SweepInterval      time.Duration
	ActiveBarsCacheTTL time.Duration
	BillingServiceURL  string
	BillingSecret      string
	BillingReturnURL   string
	LogToFile          bool
	LogDebugEnabled    bool
	LogInfoEnabled     bool
	LogErrorEnabled    bool
	AuthSecretKey      jwk.Key
}

type tomlConfig struct {
	ServerAddress      string `toml:"server_address"`
	DatabaseURI        string `toml:"database_uri"`
	RedisAddress       string `toml:"redis_address"`
	SweepInterval      string `toml:"sweep_interval"`
	ActiveBarsCacheTTL string `toml:"active_bars_cache_ttl"`
	BillingServiceURL  string `toml:"billing_service_url"`
	BillingSecret      string `toml:"billing_secret"`
	BillingReturnURL   string `toml:"billing_return_url"`
	LogToFile          bool   `toml:"log_to_file"`
	LogDebugEnabled    bool   `toml:"log_debug_enabled"`
	LogInfoEnabled     bool   `toml:"log_info_enabled"`
	LogErrorEnabled    bool   `toml:"log_error_enabled"`
	AuthSecretKey      string `toml:"auth_secret_key"`
}

func GetConfig(path string) (*Config, error) {
	var tc tomlConfig
	_, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode toml file with path: %s", path)
	}

	if tc.ServerAddress == "" {
		tc.ServerAddress = "localhost:8889"
	}

	if tc.DatabaseURI == "" {
		tc.DatabaseURI = "mongodb://localhost:27017"
	}

	if tc.RedisAddress == "" {
		tc.RedisAddress = "localhost:6379"
	}

	if tc.SweepInterval == "" {
		tc.SweepInterval = "5m"
	}
	sweepInterval, err := time.ParseDuration(tc.SweepInterval)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse sweep_interval: %s", tc.SweepInterval)
	}
	if sweepInterval < 30*time.Second {
		return nil, errors.Errorf("sweep_interval too short (%v), minimum interval: 30s", sweepInterval)
	}

	if tc.ActiveBarsCacheTTL == "" {
		tc.ActiveBarsCacheTTL = "30s"
	}
	cacheTTL, err := time.ParseDuration(tc.ActiveBarsCacheTTL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse active_bars_cache_ttl: %s", tc.ActiveBarsCacheTTL)
	}
	if cacheTTL > 5*time.Minute {
		return nil, errors.Errorf("active_bars_cache_ttl too long (%v), schedule changes would lag, maximum: 5m", cacheTTL)
	}

	if tc.BillingServiceURL == "" {
		return nil, errors.New("billing_service_url is not set")
	}
	if tc.BillingSecret == "" {
		return nil, errors.New("billing_secret is not set")
	}

	if tc.AuthSecretKey == "" {
		return nil, errors.New("auth_secret_key is not set")
	}
	authSecretKey, err := jwk.FromRaw([]byte(tc.AuthSecretKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create key from auth_secret_key")
	}

	return &Config{
		ServerAddress:      tc.ServerAddress,
		DatabaseURI:        tc.DatabaseURI,
		RedisAddress:       tc.RedisAddress,
		SweepInterval:      sweepInterval,
		ActiveBarsCacheTTL: cacheTTL,
		BillingServiceURL:  tc.BillingServiceURL,
		BillingSecret:      tc.BillingSecret,
		BillingReturnURL:   tc.BillingReturnURL,
		LogToFile:          tc.LogToFile,
		LogDebugEnabled:    tc.LogDebugEnabled,
		LogInfoEnabled:     tc.LogInfoEnabled,
		LogErrorEnabled:    tc.LogErrorEnabled,
		AuthSecretKey:      authSecretKey,
	}, nil
}
