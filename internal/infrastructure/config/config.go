package config

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"JWT_SECRET"`

	DB     DBConfig
	Hasher HasherConfig
	Admin  AdminConfig
}

type DBConfig struct {
	Driver  string        `env:"DB_DRIVER,  default=sqlite"`
	DSN     string        `env:"DB_DSN,     default=identity.db"`
	Timeout time.Duration `env:"DB_TIMEOUT, default=5s"`
}

// HasherConfig tunes argon2id. Memory is in KiB. A zero Concurrency means one
// hashing slot per CPU.
type HasherConfig struct {
	Memory      uint32 `env:"ARGON2_MEMORY_KIB,  default=65536"`
	Iterations  uint32 `env:"ARGON2_ITERATIONS,  default=3"`
	Parallelism uint8  `env:"ARGON2_PARALLELISM, default=2"`
	Concurrency int    `env:"HASH_CONCURRENCY,   default=0"`
}

// AdminConfig names the account promoted to ADMIN at start-up. Both fields
// empty disables bootstrapping.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Load reads configuration from the process environment using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints. A missing JWT_SECRET is not
// reported here; the credential service refuses to start without one.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or mysql, got %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if c.Hasher.Concurrency < 0 {
		return fmt.Errorf("HASH_CONCURRENCY must not be negative")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort("", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
