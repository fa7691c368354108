package serial

import (
	"slices"
	"time"

	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

const (
	DefaultBaudRate = 9600
	// DefaultReadTimeout of zero blocks until a frame is complete.
	DefaultReadTimeout = time.Duration(0)
)

// DefaultFrameTerminator is the terminator used when none is configured.
var DefaultFrameTerminator = []byte("\r\n")

// Config holds the settings of a serial connection.
type Config struct {
	device      string
	baudRate    int
	frame       transmission.FrameSpec
	readTimeout time.Duration
	logger      logger.Logger
}

// NewConfig creates a serial configuration for the device path.
//
// The frame defaults to "\r\n" terminated lines. The framing is validated after
// all options are applied; a configuration with neither frame length nor
// terminator returns an error wrapping transmission.ErrConfig.
func NewConfig(device string, opts ...Option) (*Config, error) {
	if device == "" {
		return nil, transmission.ConfigErrorf("serial: empty device path")
	}

	cfg := &Config{
		device:      device,
		baudRate:    DefaultBaudRate,
		frame:       transmission.FrameSpec{Terminator: slices.Clone(DefaultFrameTerminator)},
		readTimeout: DefaultReadTimeout,
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.frame.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Device returns the device path.
func (cfg *Config) Device() string { return cfg.device }

// BaudRate returns the line speed.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// Frame returns the framing configuration.
func (cfg *Config) Frame() transmission.FrameSpec { return cfg.frame }

// ReadTimeout returns the per-read timeout; zero means no timeout.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a serial Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithBaudRate sets the line speed.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *Config) error {
		if baud <= 0 {
			return transmission.ConfigErrorf("serial: baud rate %d must be positive", baud)
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithFrameTerminator sets the frame terminator. An empty terminator is only
// valid together with WithFrameLength.
func WithFrameTerminator(term []byte) Option {
	return optFunc(func(cfg *Config) error {
		cfg.frame.Terminator = slices.Clone(term)
		return nil
	})
}

// WithFramePrefix sets the byte sequence skipped to before a fixed-length
// payload.
func WithFramePrefix(prefix []byte) Option {
	return optFunc(func(cfg *Config) error {
		cfg.frame.Prefix = slices.Clone(prefix)
		return nil
	})
}

// WithFrameLength sets the fixed payload length. After the payload, the frame
// terminator (if any) is verified.
func WithFrameLength(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 {
			return transmission.ConfigErrorf("serial: frame length %d is negative", n)
		}
		cfg.frame.Length = n

		return nil
	})
}

// WithStartMarker frames by scanning for marker and reading total bytes,
// marker included. The terminator, prefix and length settings are ignored.
func WithStartMarker(marker []byte, total int) Option {
	return optFunc(func(cfg *Config) error {
		if len(marker) == 0 {
			return transmission.ConfigErrorf("serial: empty start marker")
		}
		cfg.frame.Marker = slices.Clone(marker)
		cfg.frame.Total = total

		return nil
	})
}

// WithReadTimeout bounds each read from the port. A read that times out is a
// transmission error.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 {
			return transmission.ConfigErrorf("serial: read timeout %v is negative", d)
		}
		cfg.readTimeout = d

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
