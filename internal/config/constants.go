package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const ReaperJobInterval = time.Minute

// Outbound calls
const (
	BotAPITimeout        = 10 * time.Second
	RemoteGatewayTimeout = 30 * time.Second
)

// Webhook update ids are remembered this long to drop redeliveries.
const UpdateDedupTTL = 10 * time.Minute
