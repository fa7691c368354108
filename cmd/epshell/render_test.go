package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/electric-propulsion/go-epcomms/bench"
)

func TestRenderInstruments(t *testing.T) {
	cfg := &bench.Config{Instruments: []bench.Instrument{
		{Name: "psu", Transport: bench.TransportVISA, Address: "TCPIP0::10.0.0.5::5025::SOCKET"},
	}}
	b := bench.New(cfg, nil, nil)
	defer b.Close()

	out := renderInstruments(b)
	require.Contains(t, out, "psu")
	require.Contains(t, out, "TCPIP0::10.0.0.5::5025::SOCKET")
	require.Contains(t, out, "Unopened")
	require.Contains(t, out, "default")
}

func TestRenderList(t *testing.T) {
	out := renderList("Port", []string{"/dev/ttyUSB0", "/dev/ttyUSB1"})
	require.Contains(t, out, "PORT")
	require.Contains(t, out, "/dev/ttyUSB1")
	require.Contains(t, renderMetrics(nil), "COMMANDS")
}
