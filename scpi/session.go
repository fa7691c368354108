package scpi

import (
	"context"
	"strconv"
	"strings"

	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// MaxErrorQueue bounds how many entries Errors reads from the error queue.
const MaxErrorQueue = 20

// Session exchanges SCPI text with an instrument.
type Session interface {
	// Write sends a command.
	Write(ctx context.Context, cmd string) error
	// Query sends a query and returns the response text.
	Query(ctx context.Context, query string) (string, error)
}

// Text is a packet carrying text in both directions.
type Text interface {
	packet.Receivable[string]
}

type session[P Text] struct {
	t    transmission.Transceiver[P, P]
	wrap func(string) P
}

// NewSession adapts a text transceiver. wrap builds the transmit packet for a
// command string.
func NewSession[P Text](t transmission.Transceiver[P, P], wrap func(string) P) Session {
	return &session[P]{t: t, wrap: wrap}
}

// ASCII adapts a transceiver exchanging ASCII packets (serial, telnet).
func ASCII(t transmission.Transceiver[packet.ASCII, packet.ASCII]) Session {
	return NewSession(t, packet.NewASCII)
}

// String adapts a transceiver exchanging String packets (VISA, websocket).
func String(t transmission.Transceiver[packet.String, packet.String]) Session {
	return NewSession(t, packet.NewString)
}

func (s *session[P]) Write(ctx context.Context, cmd string) error {
	return s.t.Command(ctx, s.wrap(cmd))
}

func (s *session[P]) Query(ctx context.Context, query string) (string, error) {
	resp, err := s.t.Poll(ctx, s.wrap(query))
	if err != nil {
		return "", err
	}

	return resp.Deserialize(), nil
}

// QueryFloat sends a query and parses a numeric response.
func QueryFloat(ctx context.Context, s Session, query string) (float64, error) {
	resp, err := s.Query(ctx, query)
	if err != nil {
		return 0, err
	}

	return ParseFloat(resp)
}

// Errors drains the instrument error queue with SYST:ERR? and returns the
// reported errors. It stops at the first "no error" entry or after
// MaxErrorQueue reads.
func Errors(ctx context.Context, s Session) ([]string, error) {
	var errs []string
	for range MaxErrorQueue {
		resp, err := s.Query(ctx, "SYST:ERR?")
		if err != nil {
			return errs, err
		}

		resp = strings.TrimSpace(resp)
		if errorCode(resp) == 0 {
			break
		}
		errs = append(errs, resp)
	}

	return errs, nil
}

// errorCode returns the leading error number of an entry such as
// `-113,"Undefined header"`, or -1 when it has none.
func errorCode(entry string) int {
	code, _, _ := strings.Cut(entry, ",")
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return -1
	}

	return n
}
