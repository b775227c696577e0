package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool `mapstructure:"enabled"`
	UseConsoleWriter bool `mapstructure:"useConsoleWriter"`
}

// Rotation holds the lumberjack rotation limits shared by all log files.
type Rotation struct {
	MaxSize    int `mapstructure:"maxSize"` // megabytes
	MaxBackups int `mapstructure:"maxBackups"`
	MaxAge     int `mapstructure:"maxAge"` // days
}

// LogFile implements a file based logger.
type LogFile struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`

	AccessLog string `mapstructure:"access"`
	ErrorLog  string `mapstructure:"error"`
	InfoLog   string `mapstructure:"info"`
	TraceLog  string `mapstructure:"trace"`
	WarnLog   string `mapstructure:"warn"`

	Rotation Rotation `mapstructure:"rotation"`
}

// Log implements the logger config.
type Log struct {
	LogLevel string `mapstructure:"logLevel"` // trace, debug, info, warn, error.
	LogEnv   string `mapstructure:"logEnv"`

	// EnableAccessLogToConsole writes the http access log to stdout as well.
	// Has no effect while Console.Enabled is false.
	EnableAccessLogToConsole bool `mapstructure:"enableAccessLogToConsole"`
	ReportCaller             bool `mapstructure:"reportCaller"`
	DisableHealthLog         bool `mapstructure:"disableHealthLog"` // do not log /health calls

	AppName     string `mapstructure:"appName"`
	ServiceName string `mapstructure:"serviceName"`

	Console Console `mapstructure:"console"`
	File    LogFile `mapstructure:"file"`
}
