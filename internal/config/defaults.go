package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultOracleTimeout      = 10 * time.Second
	DefaultOracleMaxRetries   = 3
	DefaultMaxQuoteAge        = 30 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultPingTimeout        = 90 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultDriverInterval     = 10 * time.Second
	DefaultDriverAgents       = 4
	DefaultDriverTimeout      = 10 * time.Second
	DefaultBatchSize          = 500
	DefaultFlushInterval      = 1 * time.Second
	DefaultNotifyBufferSize   = 1024
	DefaultHealthPort         = 8080
)

func (c *SettlerConfig) applyDefaults() {
	// Oracle defaults
	if c.Oracle.Timeout == 0 {
		c.Oracle.Timeout = DefaultOracleTimeout
	}
	if c.Oracle.MaxRetries == 0 {
		c.Oracle.MaxRetries = DefaultOracleMaxRetries
	}

	// Feed defaults
	if c.Feed.MaxQuoteAge == 0 {
		c.Feed.MaxQuoteAge = DefaultMaxQuoteAge
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}

	// Database defaults
	applyDBDefaults(&c.Database.Ledger)

	// Driver defaults
	if c.Driver.Interval == 0 {
		c.Driver.Interval = DefaultDriverInterval
	}
	if c.Driver.Agents == 0 {
		c.Driver.Agents = DefaultDriverAgents
	}
	if c.Driver.Timeout == 0 {
		c.Driver.Timeout = DefaultDriverTimeout
	}

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}

	// Notify defaults
	if c.Notify.BufferSize == 0 {
		c.Notify.BufferSize = DefaultNotifyBufferSize
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
