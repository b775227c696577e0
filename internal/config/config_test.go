package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func etcPath(t *testing.T) string {
	t.Helper()

	projectRoot, err := filepath.Abs("../../")
	require.NoError(t, err)

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(etcPath(t))
	require.NoError(t, err)

	assert.Equal(t, "go-rbac-admin", cfg.Title)
	assert.Equal(t, 8080, cfg.Webserver.Port)
	assert.NotEmpty(t, cfg.Webserver.URL)
	assert.Equal(t, EngineMySQL, cfg.DB.GormEngine)
	assert.NotEmpty(t, cfg.DB.Host)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, PasswordArgon2id, cfg.Auth.Password.Algorithm)
	assert.Equal(t, 5, cfg.Auth.Lockout.MaxAttempts)
	assert.Equal(t, []string{"/health", "/api/auth/login"}, cfg.Auth.BypassPaths)
	assert.Equal(t, "rbac", cfg.Log.ServiceName)
	assert.Equal(t, 100, cfg.Log.File.Rotation.MaxSize)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestReadConfigWithJSONOverride(t *testing.T) {
	t.Setenv(EnvConfigJSON, `{"Title":"Test Override","Webserver":{"Port":9090}}`)

	cfg, err := ReadConfig(etcPath(t))
	require.NoError(t, err)

	assert.Equal(t, "Test Override", cfg.Title)
	assert.Equal(t, 9090, cfg.Webserver.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Webserver.URL)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		return Config{
			Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
			Auth:      Auth{AccessSecret: "a", RefreshSecret: "r"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Webserver.Port = 0 }, wantErr: ErrWebServerPortCanNotBeZero},
		{name: "missing URL", mutate: func(c *Config) { c.Webserver.URL = "" }, wantErr: ErrEmptyURL},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.RefreshSecret = "" }, wantErr: ErrMissingTokenSecret},
		{name: "shared secret", mutate: func(c *Config) { c.Auth.RefreshSecret = "a" }, wantErr: ErrSameTokenSecret},
		{name: "unknown engine", mutate: func(c *Config) { c.DB.GormEngine = "oracle" }, wantErr: ErrUnknownEngine},
		{name: "unknown algorithm", mutate: func(c *Config) { c.Auth.Password.Algorithm = "md5" }, wantErr: ErrUnknownPasswordAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)

			err := validate(&c)
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	c := Config{
		Title:     "rbac",
		Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
		Auth:      Auth{AccessSecret: "a", RefreshSecret: "r", Lockout: Lockout{MaxAttempts: 3}},
	}

	require.NoError(t, validate(&c))

	assert.Equal(t, 5, c.Webserver.ShutDownTime)
	assert.Equal(t, EngineMySQL, c.DB.GormEngine)
	assert.Equal(t, PasswordArgon2id, c.Auth.Password.Algorithm)
	assert.Equal(t, 10, c.Auth.Password.Cost)
	assert.Equal(t, 15*time.Minute, c.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, c.Auth.RefreshTTL)
	assert.Equal(t, 15*time.Minute, c.Auth.Lockout.Duration)
	assert.Equal(t, "rbac", c.Auth.Issuer)
	assert.Equal(t, DefaultBypassPaths, c.Auth.BypassPaths)
	assert.Equal(t, "admin", c.Seed.AdminUsername)
}

func TestDumpConfig(t *testing.T) {
	cfg := Config{
		Title:     "Test",
		DevMode:   true,
		Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
	}

	tomlStr, err := DumpConfig(&cfg)
	require.NoError(t, err)
	assert.True(t, strings.Contains(tomlStr, "Test"))

	jsonStr, err := DumpConfigJSON(&cfg)
	require.NoError(t, err)
	assert.Contains(t, jsonStr, `"Title": "Test"`)
}
