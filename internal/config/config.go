// Package config reads the etc/main.toml configuration.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigJSON names the environment variable holding a JSON config override.
const EnvConfigJSON = "RBAC_ADMIN_CONFIG_JSON"

// Password algorithms.
const (
	PasswordArgon2id = "argon2id"
	PasswordBcrypt   = "bcrypt"
)

const (
	defaultShutDownTime = 5
	defaultAccessTTL    = 15 * time.Minute
	defaultRefreshTTL   = 7 * 24 * time.Hour
	defaultBcryptCost   = 10
	defaultLockout      = 15 * time.Minute
)

// DefaultBypassPaths skip authorization when auth.bypassPaths is not configured.
var DefaultBypassPaths = []string{"/health", "/api/auth/login"} //nolint:gochecknoglobals

// ReadConfig from <path>/main.toml, overridden by the JSON in RBAC_ADMIN_CONFIG_JSON.
func ReadConfig(path string) (Config, error) {
	var c Config

	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(path, "main.toml"))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	if override := os.Getenv(EnvConfigJSON); override != "" {
		var err error

		if c, err = decodeAndMergeConfig(c, override); err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	if err := json.Unmarshal([]byte(configAsJSON), &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode "+EnvConfigJSON)
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode config")
	}

	return string(out), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer

	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", errors.Wrap(err, "failed to encode config")
	}

	return buffer.String(), nil
}

// validate the settings every service needs and fill in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return errors.Wrap(ErrMissingTokenSecret, invalidErrMessage)
	}

	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.Wrap(ErrSameTokenSecret, invalidErrMessage)
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineMySQL
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrap(ErrUnknownEngine, invalidErrMessage)
	}

	switch c.Auth.Password.Algorithm {
	case "":
		c.Auth.Password.Algorithm = PasswordArgon2id
	case PasswordArgon2id, PasswordBcrypt:
	default:
		return errors.Wrap(ErrUnknownPasswordAlgorithm, invalidErrMessage)
	}

	if c.Auth.Password.Cost == 0 {
		c.Auth.Password.Cost = defaultBcryptCost
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Auth.AccessTTL == 0 {
		c.Auth.AccessTTL = defaultAccessTTL
	}

	if c.Auth.RefreshTTL == 0 {
		c.Auth.RefreshTTL = defaultRefreshTTL
	}

	if c.Auth.Lockout.MaxAttempts > 0 && c.Auth.Lockout.Duration == 0 {
		c.Auth.Lockout.Duration = defaultLockout
	}

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = c.Title
	}

	if c.Auth.TOTPIssuer == "" {
		c.Auth.TOTPIssuer = c.Title
	}

	if len(c.Auth.BypassPaths) == 0 {
		c.Auth.BypassPaths = slices.Clone(DefaultBypassPaths)
	}

	if c.Seed.AdminUsername == "" {
		c.Seed.AdminUsername = "admin"
	}

	return nil
}
