package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/planora/planora/auth"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr  string
		Debug bool
	}
	Database struct {
		Path string
	}
	Auth struct {
		AccessSecret  string
		RefreshSecret string
		AccessTTL     time.Duration
		RefreshTTL    time.Duration
		Issuer        string
		Scheme        string
		ContextKey    string
		HashCost      int
		// JWKSURLs, when set, switches access token validation to the
		// JWKS provider; tokens are then issued externally.
		JWKSURLs []string
	}
	RateLimit struct {
		Budget int
		Window time.Duration
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("PLANORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.debug", false)
	v.SetDefault("database.path", "data/planora.db")
	v.SetDefault("auth.accesssecret", "")
	v.SetDefault("auth.refreshsecret", "")
	v.SetDefault("auth.accessttl", "168h")
	v.SetDefault("auth.refreshttl", "720h")
	v.SetDefault("auth.issuer", "planora")
	v.SetDefault("auth.scheme", "Bearer")
	v.SetDefault("auth.contextkey", "auth_claims")
	v.SetDefault("auth.hashcost", 14)
	v.SetDefault("auth.jwksurls", []string{})
	v.SetDefault("ratelimit.budget", 5)
	v.SetDefault("ratelimit.window", "1m")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate fails fast on configuration the service must not boot without.
func (c Config) Validate() error {
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return auth.ErrServerConfiguration
	}
	return nil
}

var _ auth.Config = Config{}

func (c Config) GetAccessSigningKey() string  { return c.Auth.AccessSecret }
func (c Config) GetRefreshSigningKey() string { return c.Auth.RefreshSecret }

func (c Config) GetAccessTokenTTL() time.Duration  { return c.Auth.AccessTTL }
func (c Config) GetRefreshTokenTTL() time.Duration { return c.Auth.RefreshTTL }

func (c Config) GetIssuer() string     { return c.Auth.Issuer }
func (c Config) GetAuthScheme() string { return c.Auth.Scheme }
func (c Config) GetContextKey() string { return c.Auth.ContextKey }

func (c Config) GetPasswordHashCost() int { return c.Auth.HashCost }

func (c Config) GetRateLimitBudget() int           { return c.RateLimit.Budget }
func (c Config) GetRateLimitWindow() time.Duration { return c.RateLimit.Window }

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
