// Package config carrega a configuração do gateway (arquivo YAML + variáveis de ambiente).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"syriahub-gateway/middleware/ratelimit/domain"
)

const EnvPrefix = "SYRIAHUB"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Upstream    UpstreamConfig    `mapstructure:"upstream"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Storage     StorageConfig     `mapstructure:"storage"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Burst       BurstConfig       `mapstructure:"burst"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
	Stats       StatsConfig       `mapstructure:"stats"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Origin      OriginConfig      `mapstructure:"origin"`
	Routes      []RouteConfig     `mapstructure:"routes"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type UpstreamConfig struct {
	URL string `mapstructure:"url"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type StorageConfig struct {
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type RateLimitConfig struct {
	// Policies sobrescreve janela/limite de categorias existentes.
	Policies              map[string]PolicyConfig `mapstructure:"policies"`
	Sweep                 SweepConfig             `mapstructure:"sweep"`
	FailClosed            bool                    `mapstructure:"fail_closed"`
	TrustForwardedHeaders bool                    `mapstructure:"trust_forwarded_headers"`
}

type PolicyConfig struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

const (
	SweepProbabilistic = "probabilistic"
	SweepInterval      = "interval"
)

type SweepConfig struct {
	Mode        string        `mapstructure:"mode"`
	Probability float64       `mapstructure:"probability"`
	Interval    time.Duration `mapstructure:"interval"`
}

type BurstConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	RPS       float64 `mapstructure:"rps"`
	Burst     int     `mapstructure:"burst"`
	KeyHeader string  `mapstructure:"key_header"`
}

type ConcurrencyConfig struct {
	Max     int           `mapstructure:"max"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StatsConfig struct {
	Redis      bool          `mapstructure:"redis"`
	Prometheus bool          `mapstructure:"prometheus"`
	Prefix     string        `mapstructure:"prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	Slice      time.Duration `mapstructure:"slice"`
	TrackKeys  bool          `mapstructure:"track_keys"`
}

type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	UserIDHeader string `mapstructure:"user_id_header"`
}

type OriginConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RouteConfig struct {
	Method   string `mapstructure:"method"`
	Prefix   string `mapstructure:"prefix"`
	Category string `mapstructure:"category"`
}

// Load lê .env (se existir), o arquivo de configuração e as variáveis SYRIAHUB_*.
//
// Com path vazio, procura gateway.yaml em ., ./configs e /etc/syriahub; não
// encontrar o arquivo não é erro.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gateway")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/syriahub")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("upstream.url", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "ratelimit")

	v.SetDefault("ratelimit.sweep.mode", SweepProbabilistic)
	v.SetDefault("ratelimit.sweep.probability", 0.01)
	v.SetDefault("ratelimit.sweep.interval", 2*time.Minute)
	v.SetDefault("ratelimit.fail_closed", false)
	v.SetDefault("ratelimit.trust_forwarded_headers", false)

	v.SetDefault("burst.enabled", false)
	v.SetDefault("burst.rps", 10.0)
	v.SetDefault("burst.burst", 20)
	v.SetDefault("burst.key_header", "")

	v.SetDefault("concurrency.max", 0)
	v.SetDefault("concurrency.timeout", 0)

	v.SetDefault("stats.redis", false)
	v.SetDefault("stats.prometheus", true)
	v.SetDefault("stats.prefix", "ratelimit:stats")
	v.SetDefault("stats.ttl", 24*time.Hour)
	v.SetDefault("stats.slice", time.Minute)
	v.SetDefault("stats.track_keys", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.user_id_header", "")

	v.SetDefault("origin.allowed_origins", []string{})
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Upstream.URL) == "" {
		return errors.New("upstream.url is required")
	}
	u, err := url.Parse(c.Upstream.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.url %q is not an absolute URL", c.Upstream.URL)
	}

	switch c.Storage.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	switch c.RateLimit.Sweep.Mode {
	case SweepProbabilistic:
		if p := c.RateLimit.Sweep.Probability; p <= 0 || p > 1 {
			return fmt.Errorf("ratelimit.sweep.probability must be in (0,1], got %v", p)
		}
	case SweepInterval:
		if c.RateLimit.Sweep.Interval <= 0 {
			return errors.New("ratelimit.sweep.interval must be > 0")
		}
	default:
		return fmt.Errorf("unsupported sweep mode: %s", c.RateLimit.Sweep.Mode)
	}

	if _, err := c.Policies(); err != nil {
		return err
	}

	if c.Burst.Enabled {
		if c.Burst.RPS <= 0 {
			return errors.New("burst.rps must be > 0")
		}
		if c.Burst.Burst <= 0 {
			return errors.New("burst.burst must be > 0")
		}
	}
	if c.Concurrency.Max < 0 {
		return errors.New("concurrency.max must be >= 0")
	}
	if c.Stats.Redis && c.Storage.Redis.Host == "" {
		return errors.New("storage.redis.host is required when stats.redis=true")
	}

	for i, r := range c.Routes {
		if !domain.IsKnownCategory(r.Category) {
			return fmt.Errorf("routes[%d]: %w: %q", i, domain.ErrUnknownCategory, r.Category)
		}
		if !strings.HasPrefix(r.Prefix, "/") {
			return fmt.Errorf("routes[%d]: prefix must start with /", i)
		}
	}
	return nil
}

// Policies aplica as sobrescritas sobre domain.DefaultPolicies.
func (c *Config) Policies() (domain.Policies, error) {
	policies := domain.DefaultPolicies()
	for name, override := range c.RateLimit.Policies {
		cat := domain.Category(strings.ToLower(strings.TrimSpace(name)))
		pol, err := policies.Lookup(cat)
		if err != nil {
			return nil, fmt.Errorf("ratelimit.policies: %w", err)
		}
		if override.Window != 0 {
			pol.Window = override.Window
		}
		if override.MaxRequests != 0 {
			pol.MaxRequests = override.MaxRequests
		}
		policies[cat] = pol
	}
	if err := policies.Validate(); err != nil {
		return nil, fmt.Errorf("ratelimit.policies: %w", err)
	}
	return policies, nil
}
