package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/bookstore/internal/logger"
)

const (
	defaultListenAddr       = "localhost:8000"
	defaultLoggingLevel     = logger.LevelInfo
	defaultEnvironment      = logger.EnvProduction
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultRefreshTokenTTL  = 24 * time.Hour
	defaultStrictRevocation = true
	defaultPurgeInterval    = time.Hour
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the bookstore service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Keys to sign access and refresh tokens; required and must differ
	AccessSecretKey  string
	RefreshSecretKey string

	// Token lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Check token records on every request, not only signature and expiry
	StrictRevocation bool

	// Redis address for revocation cache; cache disabled if empty
	RedisAddr string

	// How often expired token records are deleted; zero disables purging
	PurgeInterval time.Duration

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:         defaultLoggingLevel,
		ListenAddr:       defaultListenAddr,
		Environment:      defaultEnvironment,
		AccessTokenTTL:   defaultAccessTokenTTL,
		RefreshTokenTTL:  defaultRefreshTokenTTL,
		StrictRevocation: defaultStrictRevocation,
		PurgeInterval:    defaultPurgeInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":        setString(&c.ListenAddr),
		"DATABASE_URI":       setString(&c.DatabaseDSN),
		"ACCESS_SECRET_KEY":  setString(&c.AccessSecretKey),
		"REFRESH_SECRET_KEY": setString(&c.RefreshSecretKey),
		"ACCESS_TOKEN_TTL":   setDuration(&c.AccessTokenTTL),
		"REFRESH_TOKEN_TTL":  setDuration(&c.RefreshTokenTTL),
		"STRICT_REVOCATION":  setBool(&c.StrictRevocation),
		"REDIS_ADDR":         setString(&c.RedisAddr),
		"PURGE_INTERVAL":     setDuration(&c.PurgeInterval),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"ENVIRONMENT":        setString(&c.Environment),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
	}

	if c.PurgeInterval < 0 {
		errs = append(errs, fmt.Errorf("purge interval (%s) must not be negative", c.PurgeInterval))
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("bookstore", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.AccessSecretKey, "access-secret", c.AccessSecretKey, "Secret key to sign access tokens")
	fs.StringVar(&c.RefreshSecretKey, "refresh-secret", c.RefreshSecretKey, "Secret key to sign refresh tokens")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.BoolVar(&c.StrictRevocation, "strict-revocation", c.StrictRevocation, "Check token records on every request")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address for revocation cache (disabled if empty)")
	fs.DurationVar(&c.PurgeInterval, "purge-interval", c.PurgeInterval, "Expired token purge interval (disabled if zero)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (development, production)")

	return fs.Parse(args)
}

// Validate checks the config is enough to start the server
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if c.AccessSecretKey == "" || c.RefreshSecretKey == "" {
		errs = append(errs, errors.New("access and refresh secret keys are required"))
	}
	if c.AccessSecretKey != "" && c.AccessSecretKey == c.RefreshSecretKey {
		errs = append(errs, errors.New("access and refresh secret keys must differ"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, fmt.Errorf("refresh ttl (%s) must be greater than positive access ttl (%s)", c.RefreshTokenTTL, c.AccessTokenTTL))
	}

	if c.PurgeInterval < 0 {
		errs = append(errs, fmt.Errorf("purge interval (%s) must not be negative", c.PurgeInterval))
	}

	return errors.Join(errs...)
}
