package telnet

import (
	"net"
	"strconv"
	"time"

	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

const (
	DefaultTerminator = "\n"
	DefaultTimeout    = 5 * time.Second
)

// Config holds the telnet endpoint and framing settings.
type Config struct {
	host       string
	port       int
	terminator string
	timeout    time.Duration
	logger     logger.Logger
}

// Option is a functional option for NewConfig.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(c *Config) error { return f(c) }

// NewConfig creates a configuration for host:port.
func NewConfig(host string, port int, opts ...Option) (*Config, error) {
	if host == "" {
		return nil, transmission.ConfigErrorf("telnet: empty host")
	}
	if port <= 0 || port > 65535 {
		return nil, transmission.ConfigErrorf("telnet: invalid port %d", port)
	}

	cfg := &Config{
		host:       host,
		port:       port,
		terminator: DefaultTerminator,
		timeout:    DefaultTimeout,
		logger:     logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

func (c *Config) Terminator() string { return c.terminator }

func (c *Config) Timeout() time.Duration { return c.timeout }

func (c *Config) GetLogger() logger.Logger { return c.logger }

// WithTerminator sets the line terminator appended to commands and expected
// at the end of replies.
func WithTerminator(term string) Option {
	return optFunc(func(c *Config) error {
		if term == "" {
			return transmission.ConfigErrorf("telnet: empty terminator")
		}
		c.terminator = term

		return nil
	})
}

// WithTimeout sets the dial timeout and the time a read waits for the
// terminator.
func WithTimeout(d time.Duration) Option {
	return optFunc(func(c *Config) error {
		if d <= 0 {
			return transmission.ConfigErrorf("telnet: timeout %v must be positive", d)
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
