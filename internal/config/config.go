package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"nvivas/backend/bingo-go-server/internal/logger"
)

// EnvPrefix is prepended to every flag name when read from the environment.
const EnvPrefix = "BINGO"

const (
	DefaultBind           = "0.0.0.0"
	DefaultPort           = 8080
	DefaultDrawInterval   = 5 * time.Second
	DefaultPublicCapacity = 10
	DefaultLogLevel       = "info"
	DefaultEnvFile        = ".env"
)

// Config holds the server settings.
type Config struct {
	Bind           string
	Port           int
	DrawInterval   time.Duration
	PublicCapacity int
	LogLevel       string
	Verbose        bool
	Profile        bool
	EnvFile        string
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.DrawInterval <= 0 {
		return fmt.Errorf("invalid draw interval (must be positive): %s", c.DrawInterval)
	}
	if c.PublicCapacity < 1 {
		return fmt.Errorf("invalid public capacity (must be at least 1): %d", c.PublicCapacity)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// Level is the effective log level; --verbose forces debug.
func (c *Config) Level() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}

// RegisterFlags declares every setting on fs.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", DefaultBind, "address to bind to (env: BINGO_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", DefaultPort, "port to listen on (env: BINGO_PORT or PORT)")
	fs.DurationVar(&cfg.DrawInterval, "draw-interval", DefaultDrawInterval, "time between automatic draws (env: BINGO_DRAW_INTERVAL)")
	fs.IntVar(&cfg.PublicCapacity, "public-capacity", DefaultPublicCapacity, "max players per public room (env: BINGO_PUBLIC_CAPACITY)")
	fs.StringVar(&cfg.LogLevel, "log-level", DefaultLogLevel, "log level: debug, info, warn, error (env: BINGO_LOG_LEVEL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log at debug level (env: BINGO_VERBOSE)")
	fs.BoolVar(&cfg.Profile, "profile", false, "register net/http/pprof handlers (env: BINGO_PROFILE)")
	fs.StringVar(&cfg.EnvFile, "env-file", DefaultEnvFile, "dotenv file loaded before reading the environment, ignored if missing")
}

// Load fills every flag the command line did not set from the environment,
// after loading the env file. Explicit flags always win.
func Load(fs *pflag.FlagSet, cfg *Config) error {
	if cfg.EnvFile != "" {
		// godotenv no pisa variables ya definidas
		if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading env file %s: %w", cfg.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var loadErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "env-file" {
			return
		}

		_ = v.BindPFlag(f.Name, f)
		if f.Name == "port" {
			_ = v.BindEnv(f.Name, EnvPrefix+"_PORT", "PORT")
		} else {
			_ = v.BindEnv(f.Name)
		}

		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil && loadErr == nil {
				loadErr = fmt.Errorf("invalid value for %s from environment: %w", f.Name, err)
			}
		}
	})

	return loadErr
}
