package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.url is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrMissingTokenSecret error if one of the token secrets is empty.
	ErrMissingTokenSecret = errors.New("config auth.accessSecret and auth.refreshSecret must be set")

	// ErrSameTokenSecret error if access and refresh tokens share a secret.
	ErrSameTokenSecret = errors.New("config auth.accessSecret and auth.refreshSecret must differ")

	// ErrUnknownPasswordAlgorithm error if auth.password.algorithm is not supported.
	ErrUnknownPasswordAlgorithm = errors.New("config auth.password.algorithm must be argon2id or bcrypt")

	// ErrUnknownEngine error if db.gormEngine is not supported.
	ErrUnknownEngine = errors.New("config db.gormEngine must be mysql, postgres or sqlite")
)
