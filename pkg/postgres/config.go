package postgres

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds the connection settings. DSN wins over the individual fields.
type ClientConfig struct {
	DSN             string
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

func WithDSN(dsn string) ClientOption {
	return func(c *ClientConfig) { c.DSN = dsn }
}

func WithHost(host string, port int) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		c.Port = port
	}
}

func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) { c.Database = database }
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// WithSSLMode sets lib/pq sslmode (disable, require, verify-full).
func WithSSLMode(mode string) ClientOption {
	return func(c *ClientConfig) { c.SSLMode = mode }
}

func WithPool(maxOpen, maxIdle int, lifetime time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
		c.ConnMaxLifetime = lifetime
	}
}
