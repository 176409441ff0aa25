package config

import "time"

// SettlerConfig is the root configuration for a settler instance.
type SettlerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Feed     FeedConfig     `yaml:"feed"`
	Database DatabaseConfig `yaml:"database"`
	Driver   DriverConfig   `yaml:"driver"`
	Writer   WriterConfig   `yaml:"writer"`
	Notify   NotifyConfig   `yaml:"notify"`
	Admin    AdminConfig    `yaml:"admin"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this settler.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// OracleConfig holds REST price-feed settings.
type OracleConfig struct {
	RestURL    string        `yaml:"rest_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// FeedConfig holds streaming price-feed settings. The feed is used instead
// of the REST oracle when ws_url is set.
type FeedConfig struct {
	WSURL              string        `yaml:"ws_url"`
	Sources            []string      `yaml:"sources"`
	MaxQuoteAge        time.Duration `yaml:"max_quote_age"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
}

// DatabaseConfig holds the settlement ledger connection. The ledger writer
// is disabled when no host is configured.
type DatabaseConfig struct {
	Ledger DBConfig `yaml:"ledger"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// DriverConfig holds upkeep driver settings.
type DriverConfig struct {
	Interval time.Duration `yaml:"interval"`
	Agents   int           `yaml:"agents"`
	Timeout  time.Duration `yaml:"timeout"`
}

// WriterConfig holds ledger batch writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// NotifyConfig holds event queue settings.
type NotifyConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// AdminConfig holds the capability verification key for contract creation.
type AdminConfig struct {
	KeyID         string `yaml:"key_id"`
	PublicKeyPath string `yaml:"public_key_path"`
}

// HealthConfig holds the health HTTP server settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
