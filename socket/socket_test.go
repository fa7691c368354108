package socket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// testServer upgrades every request, records the first message of each
// connection and answers it with reply.
type testServer struct {
	*httptest.Server
	conns    atomic.Int32
	received chan string
	reply    func(msg string) (int, []byte)
}

func newTestServer(t *testing.T, reply func(string) (int, []byte)) *testServer {
	t.Helper()

	s := &testServer{received: make(chan string, 16), reply: reply}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		s.conns.Add(1)

		_, msg, err := ws.ReadMessage()
		if err != nil {
			return
		}
		s.received <- string(msg)

		if s.reply != nil {
			kind, out := s.reply(string(msg))
			_ = ws.WriteMessage(kind, out)
		}

		// wait for the client's close frame
		_, _, _ = ws.ReadMessage()
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *testServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func upper(msg string) (int, []byte) {
	return websocket.TextMessage, []byte(strings.ToUpper(msg))
}

func TestCommand_FreshConnectionPerCall(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t, nil)
	conn, err := OpenString(srv.url(), WithTimeout(time.Second))
	require.NoError(err)
	defer conn.Close()

	ctx := context.Background()
	require.NoError(conn.Command(ctx, packet.NewString("OUTP ON")))
	require.Equal("OUTP ON", <-srv.received)
	require.NoError(conn.Command(ctx, packet.NewString("OUTP OFF")))
	require.Equal("OUTP OFF", <-srv.received)

	require.Equal(int32(2), srv.conns.Load())
}

func TestPoll_String(t *testing.T) {
	srv := newTestServer(t, upper)
	conn, err := OpenString(srv.url())
	require.NoError(t, err)
	defer conn.Close()

	resp, err := conn.Poll(context.Background(), packet.NewString("volt?"))
	require.NoError(t, err)
	require.Equal(t, "VOLT?", resp.Deserialize())
	require.Equal(t, uint64(1), conn.Metrics().Snapshot().Polls)
}

type setVoltage struct {
	Channel int `json:"channel"`
	Value   int `json:"value"`
}

type status struct {
	OK bool `json:"ok"`
}

func TestPoll_JSON(t *testing.T) {
	srv := newTestServer(t, func(string) (int, []byte) {
		return websocket.TextMessage, []byte(`{"ok":true}`)
	})
	conn, err := OpenJSON[setVoltage, status](srv.url())
	require.NoError(t, err)
	defer conn.Close()

	resp, err := conn.Poll(context.Background(), packet.NewJSON(setVoltage{Channel: 1, Value: 255}))
	require.NoError(t, err)
	require.True(t, resp.Deserialize().OK)
	require.JSONEq(t, `{"channel":1,"value":255}`, <-srv.received)
}

func TestPoll_InvalidJSONIsEncodingError(t *testing.T) {
	srv := newTestServer(t, func(string) (int, []byte) {
		return websocket.TextMessage, []byte(`not json`)
	})
	conn, err := OpenJSON[setVoltage, status](srv.url())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Poll(context.Background(), packet.NewJSON(setVoltage{}))
	require.ErrorIs(t, err, packet.ErrEncoding)
	require.NotErrorIs(t, err, transmission.ErrTransmission)
}

func TestPoll_BinaryReply(t *testing.T) {
	srv := newTestServer(t, func(string) (int, []byte) {
		return websocket.BinaryMessage, []byte{0x01}
	})
	conn, err := OpenString(srv.url())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Poll(context.Background(), packet.NewString("x"))
	require.ErrorIs(t, err, ErrNonText)
	require.ErrorIs(t, err, transmission.ErrTransmission)
}

func TestPoll_ReplyTimeout(t *testing.T) {
	srv := newTestServer(t, nil)
	conn, err := OpenString(srv.url(), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Poll(context.Background(), packet.NewString("x"))
	require.ErrorIs(t, err, transmission.ErrTransmission)
}

func TestRead_Unsupported(t *testing.T) {
	conn, err := OpenString("ws://127.0.0.1:1")
	require.NoError(t, err)

	_, err = conn.Read(context.Background())
	require.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	conn, err := OpenString("ws" + strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)

	err = conn.Command(context.Background(), packet.NewString("x"))
	require.ErrorIs(t, err, transmission.ErrTransmission)
	require.Contains(t, err.Error(), "404")
}

func TestOpen_Validation(t *testing.T) {
	for _, u := range []string{"http://host:81", "ws://", "::bad"} {
		_, err := OpenString(u)
		require.ErrorIs(t, err, transmission.ErrConfig, u)
	}

	_, err := Open[packet.String, packet.String]("ws://host:81", nil)
	require.ErrorIs(t, err, transmission.ErrConfig)

	_, err = OpenString("ws://host:81", WithTimeout(-time.Second))
	require.ErrorIs(t, err, transmission.ErrConfig)
}
