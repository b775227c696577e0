package config

import (
	"time"

	"github.com/go-rbac-admin/go-rbac-admin/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool       `mapstructure:"devMode"` // enable dev mode for development
	Title     string     `mapstructure:"title"`
	DB        DB         `mapstructure:"db"`
	Log       logger.Log `mapstructure:"log"`
	Webserver Webserver  `mapstructure:"webserver"`
	Auth      Auth       `mapstructure:"auth"`
	Seed      Seed       `mapstructure:"seed"`
}

// Webserver holds the http listener settings.
type Webserver struct {
	Port         int    `mapstructure:"port"`
	URL          string `mapstructure:"url"`
	ShutDownTime int    `mapstructure:"shutDownTime"` // seconds the server answers 503 before it stops
	BodyLimit    int    `mapstructure:"bodyLimit"`    // bytes, 0 keeps the fiber default
}

// Auth groups token, credential and guard settings.
type Auth struct {
	// AccessSecret signs access tokens, RefreshSecret signs refresh tokens.
	// They must differ so one token type can never pass as the other.
	AccessSecret  string        `mapstructure:"accessSecret"`
	RefreshSecret string        `mapstructure:"refreshSecret"`
	AccessTTL     time.Duration `mapstructure:"accessTTL"`
	RefreshTTL    time.Duration `mapstructure:"refreshTTL"`
	Issuer        string        `mapstructure:"issuer"`

	Password Password `mapstructure:"password"`
	Lockout  Lockout  `mapstructure:"lockout"`

	// TOTPIssuer is shown by authenticator apps.
	TOTPIssuer string `mapstructure:"totpIssuer"`

	// BypassPaths skip authorization regardless of the declared requirement.
	BypassPaths []string `mapstructure:"bypassPaths"`
}

// Password selects the hashing algorithm for stored credentials.
type Password struct {
	Algorithm string `mapstructure:"algorithm"` // argon2id or bcrypt
	Cost      int    `mapstructure:"cost"`      // bcrypt cost
}

// Lockout locks an account after MaxAttempts failed logins for Duration.
// MaxAttempts 0 disables locking.
type Lockout struct {
	MaxAttempts int           `mapstructure:"maxAttempts"`
	Duration    time.Duration `mapstructure:"duration"`
}

// Seed describes the initial administrator account.
// An empty AdminPassword is replaced by a random one which is logged once.
type Seed struct {
	AdminUsername string `mapstructure:"adminUsername"`
	AdminEmail    string `mapstructure:"adminEmail"`
	AdminPassword string `mapstructure:"adminPassword"`
}
