package ethernetip

import (
	"time"

	"github.com/electric-propulsion/go-epcomms/eip"
	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// Config holds the Ethernet/IP connection settings.
type Config struct {
	timeout time.Duration
	logger  logger.Logger
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
		timeout: eip.DefaultTimeout,
		logger:  logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) Timeout() time.Duration { return c.timeout }

func (c *Config) GetLogger() logger.Logger { return c.logger }

// WithTimeout sets the connect and per-request timeout of the default driver.
func WithTimeout(d time.Duration) Option {
	return optFunc(func(c *Config) error {
		if d <= 0 {
			return transmission.ConfigErrorf("ethernetip: timeout %v must be positive", d)
		}
		c.timeout = d

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
