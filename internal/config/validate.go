package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *SettlerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Oracle.RestURL == "" && c.Feed.WSURL == "" {
		return errors.New("one of oracle.rest_url or feed.ws_url is required")
	}

	if c.Feed.WSURL != "" && len(c.Feed.Sources) == 0 {
		return errors.New("feed.sources is required when feed.ws_url is set")
	}

	// The ledger is optional; validate only when configured.
	if c.Database.Ledger.Host != "" {
		if err := c.Database.Ledger.validate("database.ledger"); err != nil {
			return err
		}
		if c.Writer.BatchSize < 1 {
			return errors.New("writer.batch_size must be >= 1")
		}
	}

	if c.Driver.Agents < 1 {
		return errors.New("driver.agents must be >= 1")
	}
	if c.Driver.Interval <= 0 {
		return errors.New("driver.interval must be positive")
	}

	if c.Notify.BufferSize < 1 {
		return errors.New("notify.buffer_size must be >= 1")
	}

	if c.Admin.KeyID != "" && c.Admin.PublicKeyPath == "" {
		return errors.New("admin.public_key_path is required when admin.key_id is set")
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
