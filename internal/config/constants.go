package config

import (
	"time"

	"custos/pkg/contracts"
)

// Application constants
const (
	AppName    = "Custos"
	AppVersion = contracts.Version

	// EnvPrefix namespaces every environment variable (CUSTOS_SERVER_PORT, ...)
	EnvPrefix = "CUSTOS"

	// ConfigFileEnv points at an explicit YAML config file
	ConfigFileEnv = "CUSTOS_CONFIG_FILE"

	SessionCookieName = "custos_session"
)

// Defaults used by Default() and by validate() when a value is left unset
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 60 * time.Second

	DefaultRateLimitRPS   = 50
	DefaultRateLimitBurst = 100

	DefaultMaxUploadBytes int64 = 20 << 20 // 20MB

	DefaultSessionTTL    = 2 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
	DefaultMaxSessions   = 256

	// DefaultMonthCount is how many leading sheets are preselected after an upload
	DefaultMonthCount = 2
	DefaultChartTheme = "chalk"

	// MaxSelectedMonths bounds a single selection request
	MaxSelectedMonths = 120

	DefaultLogFile = "logs/custos.log"
)

// AllowedUploadExtensions lists the accepted spreadsheet extensions
var AllowedUploadExtensions = []string{".xlsx"}
