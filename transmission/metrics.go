package transmission

import "sync/atomic"

// Metrics contains atomic counters for a connection.
type Metrics struct {
	// CommandCount is the number of successful commands.
	CommandCount atomic.Uint64
	// ReadCount is the number of successful reads.
	ReadCount atomic.Uint64
	// PollCount is the number of successful polls.
	PollCount atomic.Uint64
	// ErrorCount is the number of failed commands, reads and polls.
	ErrorCount atomic.Uint64
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	Commands uint64
	Reads    uint64
	Polls    uint64
	Errors   uint64
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Commands: m.CommandCount.Load(),
		Reads:    m.ReadCount.Load(),
		Polls:    m.PollCount.Load(),
		Errors:   m.ErrorCount.Load(),
	}
}

func (m *Metrics) incCommandCount() {
	m.CommandCount.Add(1)
}

func (m *Metrics) incReadCount() {
	m.ReadCount.Add(1)
}

func (m *Metrics) incPollCount() {
	m.PollCount.Add(1)
}

func (m *Metrics) incErrorCount() {
	m.ErrorCount.Add(1)
}
