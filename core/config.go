package core

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// minSecretKeyLen is the minimum length of the HMAC signing secret.
// Anything shorter is trivially brute-forceable and is refused at startup.
const minSecretKeyLen = 32

var errWeakSecretKey = errors.Errorf("SECRET_KEY must be at least %d bytes", minSecretKeyLen)

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (local; default), TEST, QA, PROD
		Build    string
		AppName  string

		// SecretKey signs session tokens. Mandatory; no default is provided
		// on purpose so a forgeable fallback secret can never ship.
		SecretKey string

		RollbarToken string

		Server    ServerConfig
		Database  DatabaseConfig
		RateLimit RateLimitConfig
	}

	ServerConfig struct {
		Host               string
		Port               string
		DebugPort          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	RateLimitConfig struct {
		Attempts int
		Window   time.Duration
	}
)

func (c ServerConfig) Address() string      { return net.JoinHostPort(c.Host, c.Port) }
func (c ServerConfig) DebugAddress() string { return net.JoinHostPort(c.Host, c.DebugPort) }
func (c DatabaseConfig) Address() string    { return net.JoinHostPort(c.Host, c.Port) }

// NewConfig loads the application configuration from the environment,
// optionally seeded from a config/.env.<env> file.
// It fails fast on a missing or weak SECRET_KEY.
func NewConfig() (*Config, error) {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Elimu")
	conf.SetDefault("build", "dev")
	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("serverDebugPort", "4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseName", "elimu")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", "5432")
	conf.SetDefault("databaseDisableTLS", true)
	conf.SetDefault("rateLimitAttempts", 3)
	conf.SetDefault("rateLimitWindow", 5*time.Minute)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	conf.AutomaticEnv()

	c := &Config{
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		Env:          env,
		Build:        conf.GetString("build"),
		AppName:      conf.GetString("appName"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Port:               conf.GetString("serverPort"),
			DebugPort:          conf.GetString("serverDebugPort"),
			ShutdownTimeout:    conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Name:          conf.GetString("databaseName"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetString("databasePort"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
		},
		RateLimit: RateLimitConfig{
			Attempts: conf.GetInt("rateLimitAttempts"),
			Window:   conf.GetDuration("rateLimitWindow"),
		},
	}

	if len(c.SecretKey) < minSecretKeyLen {
		return nil, errWeakSecretKey
	}
	return c, nil
}
