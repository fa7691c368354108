package socket

import (
	"net/http"
	"time"

	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultTimeout          = 5 * time.Second
)

// Config holds the websocket connection settings.
type Config struct {
	handshakeTimeout time.Duration
	timeout          time.Duration
	header           http.Header
	logger           logger.Logger
}

// Option is a functional option for NewConfig.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(c *Config) error { return f(c) }

// NewConfig builds a validated Config.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		handshakeTimeout: DefaultHandshakeTimeout,
		timeout:          DefaultTimeout,
		header:           http.Header{},
		logger:           logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) HandshakeTimeout() time.Duration { return c.handshakeTimeout }

func (c *Config) Timeout() time.Duration { return c.timeout }

func (c *Config) GetLogger() logger.Logger { return c.logger }

// WithHandshakeTimeout bounds the opening handshake of each connection.
func WithHandshakeTimeout(d time.Duration) Option {
	return optFunc(func(c *Config) error {
		if d <= 0 {
			return transmission.ConfigErrorf("socket: handshake timeout %v must be positive", d)
		}
		c.handshakeTimeout = d

		return nil
	})
}

// WithTimeout bounds each write and read. A context deadline that expires
// sooner takes precedence.
func WithTimeout(d time.Duration) Option {
	return optFunc(func(c *Config) error {
		if d <= 0 {
			return transmission.ConfigErrorf("socket: timeout %v must be positive", d)
		}
		c.timeout = d

		return nil
	})
}

// WithHeader adds a header sent with every handshake request.
func WithHeader(key, value string) Option {
	return optFunc(func(c *Config) error {
		c.header.Add(key, value)
		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(c *Config) error {
		if l != nil {
			c.logger = l
		}

		return nil
	})
}
