// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TOPBAGS_BAGS_API_KEY.
const EnvPrefix = "TOPBAGS"

type Config struct {
	Tokens             []string      `mapstructure:"tokens"`
	UseRemoteTokenList bool          `mapstructure:"use_remote_token_list"`
	BagsAPIKey         string        `mapstructure:"bags_api_key"`
	BagsEndpoints      []string      `mapstructure:"bags_endpoints"`
	DexScreenerURL     string        `mapstructure:"dexscreener_url"`
	CoinGeckoURL       string        `mapstructure:"coingecko_url"`
	BirdeyeURL         string        `mapstructure:"birdeye_url"`
	BirdeyeAPIKey      string        `mapstructure:"birdeye_api_key"`
	ProxyURL           string        `mapstructure:"proxy_url"`
	ListenAddr         string        `mapstructure:"listen_addr"`
	AllowOrigins       []string      `mapstructure:"allow_origins"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	Stagger            time.Duration `mapstructure:"stagger"`
	RateTTL            time.Duration `mapstructure:"rate_ttl"`
	TokenListTTL       time.Duration `mapstructure:"token_list_ttl"`
	Retries            int           `mapstructure:"retries"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RedisURL           string        `mapstructure:"redis_url"`
	DebugLogging       bool          `mapstructure:"debug_logging"`
	LogFile            string        `mapstructure:"log_file"`
}

const (
	DefaultDexScreenerURL = "https://api.dexscreener.com/latest/dex"
	DefaultCoinGeckoURL   = "https://api.coingecko.com/api/v3"
	DefaultBirdeyeURL     = "https://public-api.birdeye.so/public"
	DefaultListenAddr     = ":5000"
	DefaultPollInterval   = 5 * time.Minute
	DefaultStagger        = 50 * time.Millisecond
	DefaultRateTTL        = time.Minute
	DefaultTokenListTTL   = time.Hour
	DefaultRetries        = 3
	DefaultRequestTimeout = 15 * time.Second
)

// DefaultBagsEndpoints are the claim-stats hosts in probe order.
var DefaultBagsEndpoints = []string{
	"https://public-api-v2.bags.fm/api/v1",
	"https://api.bags.fm/api/v1",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"tokens":                []string{},
		"use_remote_token_list": false,
		"bags_api_key":          "",
		"bags_endpoints":        DefaultBagsEndpoints,
		"dexscreener_url":       DefaultDexScreenerURL,
		"coingecko_url":         DefaultCoinGeckoURL,
		"birdeye_url":           DefaultBirdeyeURL,
		"birdeye_api_key":       "",
		"proxy_url":             "",
		"listen_addr":           DefaultListenAddr,
		"allow_origins":         []string{},
		"poll_interval":         DefaultPollInterval,
		"stagger":               DefaultStagger,
		"rate_ttl":              DefaultRateTTL,
		"token_list_ttl":        DefaultTokenListTTL,
		"retries":               DefaultRetries,
		"request_timeout":       DefaultRequestTimeout,
		"redis_url":             "",
		"debug_logging":         false,
		"log_file":              "",
	}
}

// LoadConfig reads path (JSON or YAML), applies defaults and TOPBAGS_*
// environment overrides, then validates. An empty path uses defaults and env only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

// loadEnvironmentVariables handles list-valued overrides, which arrive as
// comma-separated strings.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	if raw, ok := lookupString(v, "tokens"); ok {
		if list := splitList(raw); len(list) > 0 {
			cfg.Tokens = list
		}
	}
	if raw, ok := lookupString(v, "bags_endpoints"); ok {
		if list := splitList(raw); len(list) > 0 {
			cfg.BagsEndpoints = list
		}
	}
	if raw, ok := lookupString(v, "allow_origins"); ok {
		if list := splitList(raw); len(list) > 0 {
			cfg.AllowOrigins = list
		}
	}
}

// lookupString returns a key's value only when it is a plain string,
// which for list keys means it came from the environment.
func lookupString(v *viper.Viper, key string) (string, bool) {
	s, ok := v.Get(key).(string)
	return s, ok && s != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(part); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if len(cfg.Tokens) == 0 && !cfg.UseRemoteTokenList {
		return errors.New("tokens is empty and use_remote_token_list is off")
	}
	for _, mint := range cfg.Tokens {
		if err := ValidateMint(mint); err != nil {
			return fmt.Errorf("invalid token %q: %w", mint, err)
		}
	}

	urls := map[string]string{
		"dexscreener_url": cfg.DexScreenerURL,
		"coingecko_url":   cfg.CoinGeckoURL,
		"birdeye_url":     cfg.BirdeyeURL,
	}
	if cfg.ProxyURL != "" {
		urls["proxy_url"] = cfg.ProxyURL
	}
	for name, raw := range urls {
		if err := validateURLWithCache(raw, "http"); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if len(cfg.BagsEndpoints) == 0 {
		return errors.New("bags_endpoints is empty")
	}
	for _, ep := range cfg.BagsEndpoints {
		if err := validateURLWithCache(ep, "http"); err != nil {
			return fmt.Errorf("invalid bags endpoint %q: %w", ep, err)
		}
	}
	if cfg.RedisURL != "" {
		if err := validateURLWithCache(cfg.RedisURL, "redis"); err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
	}

	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.PollInterval <= 0 {
		return errors.New("invalid poll_interval")
	}
	if cfg.Stagger < 0 {
		return errors.New("invalid stagger")
	}
	if cfg.RateTTL <= 0 {
		return errors.New("invalid rate_ttl")
	}
	if cfg.TokenListTTL <= 0 {
		return errors.New("invalid token_list_ttl")
	}
	if cfg.Retries <= 0 {
		return errors.New("invalid retries count")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("invalid request_timeout")
	}
	return nil
}

// ValidateMint checks that mint is a base58-encoded 32-byte public key.
func ValidateMint(mint string) error {
	raw, err := base58.Decode(mint)
	if err != nil {
		return fmt.Errorf("not base58: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("decoded to %d bytes, want 32", len(raw))
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}
