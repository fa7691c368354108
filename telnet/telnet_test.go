package telnet

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// listen starts a one-connection server running handle and returns a Dial'd
// client connection to it.
func listen(t *testing.T, handle func(c net.Conn), opts ...Option) *Conn {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		handle(c)
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	conn, err := Dial(context.Background(), host, port, opts...)
	require.NoError(t, err)

	return conn
}

func TestPoll(t *testing.T) {
	got := make(chan string, 1)
	conn := listen(t, func(c net.Conn) {
		line, err := bufio.NewReader(c).ReadString('\n')
		if err != nil {
			return
		}
		got <- line
		_, _ = c.Write([]byte("TEKTRONIX,DMM4050,0,1.0\n"))
		_, _ = io.Copy(io.Discard, c)
	})
	defer conn.Close()

	resp, err := conn.Poll(context.Background(), packet.NewASCII("*IDN?"))
	require.NoError(t, err)
	require.Equal(t, "TEKTRONIX,DMM4050,0,1.0", resp.Deserialize())
	require.Equal(t, "*IDN?\n", <-got)
}

func TestCustomTerminator(t *testing.T) {
	conn := listen(t, func(c net.Conn) {
		r := bufio.NewReader(c)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		_, _ = c.Write([]byte("+1.25E-03\r\n"))
		_, _ = io.Copy(io.Discard, r)
	}, WithTerminator("\r\n"))
	defer conn.Close()

	resp, err := conn.Poll(context.Background(), packet.NewASCII("MEAS:VOLT:DC?"))
	require.NoError(t, err)
	require.Equal(t, "+1.25E-03", resp.Deserialize())
}

func TestRead_Timeout(t *testing.T) {
	conn := listen(t, func(c net.Conn) {
		// partial line, never terminated
		_, _ = c.Write([]byte("+1.0"))
		_, _ = io.Copy(io.Discard, c)
	}, WithTimeout(100*time.Millisecond))
	defer conn.Close()

	_, err := conn.Read(context.Background())
	require.ErrorIs(t, err, transmission.ErrTransmission)
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
	require.Contains(t, err.Error(), "timeout")
}

func TestCommand_EncodingError(t *testing.T) {
	conn := listen(t, func(c net.Conn) {
		_, _ = io.Copy(io.Discard, c)
	})
	defer conn.Close()

	err := conn.Command(context.Background(), packet.NewASCII("DISP:TEXT \"5 µA\""))
	require.ErrorIs(t, err, packet.ErrEncoding)
	require.NotErrorIs(t, err, transmission.ErrTransmission)
}

func TestClose_HalfClosesAndDrains(t *testing.T) {
	sawEOF := make(chan struct{})
	conn := listen(t, func(c net.Conn) {
		_, _ = io.Copy(io.Discard, c)
		close(sawEOF)
		_, _ = c.Write([]byte("goodbye\n"))
	})

	require.NoError(t, conn.Command(context.Background(), packet.NewASCII("SYST:LOC")))
	require.NoError(t, conn.Close())

	select {
	case <-sawEOF:
	case <-time.After(time.Second):
		t.Fatal("server did not see the half-close")
	}

	require.ErrorIs(t, conn.Close(), transmission.ErrConnClosed)
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), "127.0.0.1", port, WithTimeout(time.Second))
	require.ErrorIs(t, err, transmission.ErrTransmission)
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig("192.168.0.136", 3490)
	require.NoError(t, err)
	require.Equal(t, "192.168.0.136:3490", cfg.Addr())
	require.Equal(t, "\n", cfg.Terminator())
	require.Equal(t, 5*time.Second, cfg.Timeout())

	tests := []struct {
		host string
		port int
		opts []Option
	}{
		{"", 23, nil},
		{"host", 0, nil},
		{"host", 70000, nil},
		{"host", 23, []Option{WithTerminator("")}},
		{"host", 23, []Option{WithTimeout(0)}},
	}
	for _, tt := range tests {
		_, err := NewConfig(tt.host, tt.port, tt.opts...)
		require.ErrorIs(t, err, transmission.ErrConfig)
	}
}

func TestClose_InterruptsBlockedPoll(t *testing.T) {
	conn := listen(t, func(c net.Conn) {
		// read the query and never answer
		_, _ = io.Copy(io.Discard, c)
	}, WithTimeout(5*time.Second))

	errc := make(chan error, 1)
	go func() {
		_, err := conn.Poll(context.Background(), packet.NewASCII("MEAS:VOLT:DC?"))
		errc <- err
	}()

	time.Sleep(100 * time.Millisecond)
	start := time.Now()
	require.NoError(t, conn.Close())

	select {
	case err := <-errc:
		require.ErrorIs(t, err, transmission.ErrTransmission)
		require.Contains(t, err.Error(), "interrupted")
	case <-time.After(2 * time.Second):
		t.Fatal("poll was not interrupted by close")
	}
	require.Less(t, time.Since(start), 3*time.Second)
	require.Equal(t, transmission.ClosedState, conn.State())
}

func TestRead_TimeoutReportsContextDeadline(t *testing.T) {
	conn := listen(t, func(c net.Conn) {
		_, _ = io.Copy(io.Discard, c)
	}, WithTimeout(5*time.Second))
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err := conn.Read(ctx)
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
	require.Contains(t, err.Error(), "timeout after")
	require.NotContains(t, err.Error(), "after 5s")
}
