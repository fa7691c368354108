// Package ethernetip implements a transmission over CIP generic messages.
//
// Commands are sent as Set_Attribute_Single requests and polls as
// Get_Attribute_Single requests. The transport is request/response only, so
// Read returns transmission.ErrReadUnsupported.
package ethernetip

import (
	"context"
	"errors"
	"fmt"

	"github.com/electric-propulsion/go-epcomms/cip"
	"github.com/electric-propulsion/go-epcomms/eip"
	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// Driver is a CIP explicit messaging driver. *eip.Client implements it.
//
// GenericMessage reports a CIP error status in the returned tag and uses the
// error result for transport failures.
type Driver interface {
	Connected() bool
	Open(ctx context.Context) error
	GenericMessage(ctx context.Context, msg cip.GenericMessage) (cip.Tag, error)
	Close() error
}

var _ Driver = (*eip.Client)(nil)

// Conn is an Ethernet/IP connection exchanging CIP requests and responses.
type Conn = transmission.Conn[cip.Response, cip.Request]

// Link adapts a Driver to the transmission contract.
type Link struct {
	driver Driver
	logger logger.Logger
}

var (
	_ transmission.Link[cip.Response, cip.Request]    = (*Link)(nil)
	_ transmission.Querier[cip.Response, cip.Request] = (*Link)(nil)
)

// Open creates a connection to the device at path, e.g. "192.168.0.172".
// The session is registered on first use.
func Open(path string, opts ...Option) (*Conn, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	client, err := eip.NewClient(path, eip.WithTimeout(cfg.timeout), eip.WithLogger(cfg.logger))
	if err != nil {
		return nil, transmission.ConfigErrorf("ethernetip: %w", err)
	}

	return newConn("ethernetip:"+path, client, cfg), nil
}

// NewConn wraps an existing driver.
func NewConn(name string, driver Driver, opts ...Option) (*Conn, error) {
	if driver == nil {
		return nil, transmission.ConfigErrorf("ethernetip: nil driver")
	}

	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	return newConn(name, driver, cfg), nil
}

func newConn(name string, driver Driver, cfg *Config) *Conn {
	l := cfg.logger.With("device", name)
	link := &Link{driver: driver, logger: l}

	return transmission.NewConn[cip.Response, cip.Request](name, link, l)
}

// Send writes the request payload with Set_Attribute_Single.
func (l *Link) Send(ctx context.Context, p cip.Request) error {
	msg, err := l.message(ctx, p, cip.SetAttributeSingle)
	if err != nil {
		return err
	}
	// a set reply carries no data to decode
	msg.Type = nil

	tag, err := l.driver.GenericMessage(ctx, msg)
	if err != nil {
		return wrapDriverError(msg, err)
	}
	if !tag.OK() {
		return transmission.Errorf("ethernetip: set attribute failed: class %d, instance %d, attribute %d: %s",
			msg.Class, msg.Instance, msg.Attribute, tagError(tag))
	}

	return nil
}

// Receive is unsupported.
func (l *Link) Receive(context.Context) (cip.Response, error) {
	return cip.Response{}, transmission.ErrReadUnsupported
}

// Query reads the addressed attribute with Get_Attribute_Single, decoding
// the reply with the request's data type.
func (l *Link) Query(ctx context.Context, p cip.Request) (cip.Response, error) {
	msg, err := l.message(ctx, p, cip.GetAttributeSingle)
	if err != nil {
		return cip.Response{}, err
	}
	msg.Data = nil

	tag, err := l.driver.GenericMessage(ctx, msg)
	if err != nil {
		return cip.Response{}, wrapDriverError(msg, err)
	}
	if !tag.OK() {
		return cip.Response{}, fmt.Errorf("%w: get attribute: class %d, instance %d, attribute %d: %s",
			transmission.ErrEmptyResponse, msg.Class, msg.Instance, msg.Attribute, tagError(tag))
	}

	return cip.DecodeResponse(tag)
}

// Close closes the driver.
func (l *Link) Close() error {
	return l.driver.Close()
}

func (l *Link) message(ctx context.Context, p cip.Request, svc cip.Service) (cip.GenericMessage, error) {
	if !l.driver.Connected() {
		if err := l.driver.Open(ctx); err != nil {
			return cip.GenericMessage{}, transmission.Errorf("ethernetip: open: %w", err)
		}
	}

	msg, err := p.Serialize()
	if err != nil {
		return cip.GenericMessage{}, err
	}
	msg.Service = svc
	l.logger.Debug("generic message", "request", msg.String(), "bytes", len(msg.Data))

	return msg, nil
}

func wrapDriverError(msg cip.GenericMessage, err error) error {
	if errors.Is(err, transmission.ErrTransmission) {
		return err
	}

	return transmission.Errorf("ethernetip: %s: %w", msg, err)
}

func tagError(tag cip.Tag) string {
	if tag.Error != "" {
		return tag.Error
	}

	return "empty response"
}
