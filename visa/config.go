package visa

import (
	"time"

	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

const (
	DefaultTimeout          = 2500 * time.Millisecond
	DefaultReadTermination  = "\n"
	DefaultWriteTermination = "\n"
	DefaultBaudRate         = 9600

	DefaultOpenAttempts   = 10
	DefaultOpenRetryDelay = 100 * time.Millisecond
)

// Config holds the settings of a VISA session.
type Config struct {
	attrs        Attributes
	openAttempts int
	retryDelay   time.Duration
	logger       logger.Logger
}

// NewConfig creates a VISA session configuration.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		attrs: Attributes{
			Timeout:          DefaultTimeout,
			ReadTermination:  DefaultReadTermination,
			WriteTermination: DefaultWriteTermination,
			BaudRate:         DefaultBaudRate,
		},
		openAttempts: DefaultOpenAttempts,
		retryDelay:   DefaultOpenRetryDelay,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Attributes returns the session attributes applied at open.
func (cfg *Config) Attributes() Attributes { return cfg.attrs }

// OpenAttempts returns the number of open attempts.
func (cfg *Config) OpenAttempts() int { return cfg.openAttempts }

// OpenRetryDelay returns the delay between open attempts.
func (cfg *Config) OpenRetryDelay() time.Duration { return cfg.retryDelay }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a VISA Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithTimeout sets the I/O timeout of the session.
func WithTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return transmission.ConfigErrorf("visa: timeout %v must be positive", d)
		}
		cfg.attrs.Timeout = d

		return nil
	})
}

// WithReadTermination sets the response terminator.
func WithReadTermination(term string) Option {
	return optFunc(func(cfg *Config) error {
		if term == "" {
			return transmission.ConfigErrorf("visa: empty read termination")
		}
		cfg.attrs.ReadTermination = term

		return nil
	})
}

// WithWriteTermination sets the terminator appended to writes. An empty
// terminator writes data unchanged.
func WithWriteTermination(term string) Option {
	return optFunc(func(cfg *Config) error {
		cfg.attrs.WriteTermination = term
		return nil
	})
}

// WithBaudRate sets the line speed of ASRL resources.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *Config) error {
		if baud <= 0 {
			return transmission.ConfigErrorf("visa: baud rate %d must be positive", baud)
		}
		cfg.attrs.BaudRate = baud

		return nil
	})
}

// WithOpenRetry sets how many times opening is attempted and the delay
// between attempts.
func WithOpenRetry(attempts int, delay time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if attempts < 1 {
			return transmission.ConfigErrorf("visa: open attempts %d must be at least 1", attempts)
		}
		if delay < 0 {
			return transmission.ConfigErrorf("visa: open retry delay %v is negative", delay)
		}
		cfg.openAttempts = attempts
		cfg.retryDelay = delay

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l != nil {
			cfg.logger = l
		}

		return nil
	})
}
