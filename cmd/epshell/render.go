package main

import (
	"github.com/jedib0t/go-pretty/table"

	"github.com/electric-propulsion/go-epcomms/bench"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

func renderInstruments(b *bench.Bench) string {
	open := make(map[string]transmission.State)
	for _, s := range b.Sessions() {
		open[s.Instrument().Name] = s.State()
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Transport", "Address", "Timeout", "State"})

	for _, inst := range b.Config().Instruments {
		state, ok := open[inst.Name]
		if !ok {
			state = transmission.UnopenedState
		}

		timeout := "default"
		if inst.Timeout > 0 {
			timeout = inst.Timeout.String()
		}

		t.AppendRow(table.Row{inst.Name, inst.Transport, inst.Address, timeout, state})
	}

	return t.Render()
}

func renderMetrics(sessions []*bench.Session) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Commands", "Reads", "Polls", "Errors"})

	for _, s := range sessions {
		m := s.Metrics()
		t.AppendRow(table.Row{s.Instrument().Name, m.Commands, m.Reads, m.Polls, m.Errors})
	}

	return t.Render()
}

func renderList(header string, items []string) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{header})

	for _, item := range items {
		t.AppendRow(table.Row{item})
	}

	return t.Render()
}
