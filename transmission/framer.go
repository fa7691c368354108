package transmission

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// FrameMode identifies the framing discipline of a Framer.
type FrameMode int

const (
	// TerminatorMode reads until the terminator and discards it.
	TerminatorMode FrameMode = iota
	// LengthMode skips to the prefix, reads a fixed number of payload bytes and
	// verifies the terminator that follows.
	LengthMode
	// MarkerMode skips to the start marker and reads a fixed total length,
	// marker included.
	MarkerMode
)

func (m FrameMode) String() string {
	switch m {
	case TerminatorMode:
		return "terminator"
	case LengthMode:
		return "length"
	case MarkerMode:
		return "marker"
	default:
		return "unknown"
	}
}

// FrameSpec describes how frames are delimited on a byte stream.
type FrameSpec struct {
	// Terminator ends each frame. In LengthMode it is verified after the
	// payload when non-empty.
	Terminator []byte
	// Prefix is scanned for and discarded before a fixed-length payload.
	Prefix []byte
	// Length is the fixed payload length. Zero means unset.
	Length int
	// Marker starts each frame in MarkerMode. It is kept in the frame.
	Marker []byte
	// Total is the frame length including the marker in MarkerMode.
	Total int
}

// Mode reports the discipline the frame spec selects. A non-empty Marker selects
// MarkerMode, a positive Length selects LengthMode, otherwise TerminatorMode.
func (s FrameSpec) Mode() FrameMode {
	switch {
	case len(s.Marker) > 0:
		return MarkerMode
	case s.Length > 0:
		return LengthMode
	default:
		return TerminatorMode
	}
}

// Validate reports whether the frame spec can delimit frames. The error wraps
// ErrConfig.
func (s FrameSpec) Validate() error {
	if s.Length < 0 {
		return ConfigErrorf("frame length %d is negative", s.Length)
	}

	switch s.Mode() {
	case MarkerMode:
		if s.Total < len(s.Marker) {
			return ConfigErrorf("frame total length %d is shorter than the %d byte start marker", s.Total, len(s.Marker))
		}
	case TerminatorMode:
		if len(s.Terminator) == 0 {
			return ConfigErrorf("frame length is unset and terminator is empty")
		}
	}

	return nil
}

// Framer reads frames from a byte stream.
//
// A Framer buffers the stream; bytes read past the end of a frame are kept
// for the next ReadFrame call.
type Framer struct {
	spec FrameSpec
	r    *bufio.Reader
}

// NewFramer validates spec and returns a Framer reading from r.
func NewFramer(r io.Reader, spec FrameSpec) (*Framer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &Framer{spec: spec, r: bufio.NewReader(r)}, nil
}

// Spec returns the framing configuration.
func (f *Framer) Spec() FrameSpec {
	return f.spec
}

// ReadFrame reads one frame. Read failures are wrapped in ErrTransmission.
func (f *Framer) ReadFrame() ([]byte, error) {
	switch f.spec.Mode() {
	case MarkerMode:
		return f.readMarker()
	case LengthMode:
		return f.readLength()
	default:
		return f.readTerminated()
	}
}

func (f *Framer) readTerminated() ([]byte, error) {
	term := f.spec.Terminator
	last := term[len(term)-1]

	var buf []byte
	for {
		chunk, err := f.r.ReadSlice(last)
		buf = append(buf, chunk...)

		switch {
		case err == nil:
			if bytes.HasSuffix(buf, term) {
				return buf[:len(buf)-len(term)], nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
			// keep accumulating
		default:
			return nil, readError("terminated frame", err)
		}
	}
}

func (f *Framer) readLength() ([]byte, error) {
	if err := f.skipTo(f.spec.Prefix); err != nil {
		return nil, err
	}

	payload := make([]byte, f.spec.Length)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		return nil, readError("frame payload", err)
	}

	term := f.spec.Terminator
	if len(term) == 0 {
		return payload, nil
	}

	tail := make([]byte, len(term))
	if _, err := io.ReadFull(f.r, tail); err != nil {
		return nil, readError("frame terminator", err)
	}

	if !bytes.Equal(tail, term) {
		return nil, fmt.Errorf("%w: want % X, got % X", ErrFrameTerminator, term, tail)
	}

	return payload, nil
}

func (f *Framer) readMarker() ([]byte, error) {
	if err := f.skipTo(f.spec.Marker); err != nil {
		return nil, err
	}

	frame := make([]byte, f.spec.Total)
	n := copy(frame, f.spec.Marker)
	if _, err := io.ReadFull(f.r, frame[n:]); err != nil {
		return nil, readError("marked frame", err)
	}

	return frame, nil
}

// skipTo consumes bytes until the last len(seq) bytes read equal seq.
func (f *Framer) skipTo(seq []byte) error {
	if len(seq) == 0 {
		return nil
	}

	window := make([]byte, 0, len(seq))
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return readError("frame start", err)
		}

		if len(window) == len(seq) {
			copy(window, window[1:])
			window = window[:len(seq)-1]
		}
		window = append(window, b)

		if bytes.Equal(window, seq) {
			return nil
		}
	}
}

func readError(what string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return Errorf("read %s: timeout: %w", what, err)
	}

	return Errorf("read %s: %w", what, err)
}
