package transmission

import "sync/atomic"

// State is the lifecycle state of a connection.
type State uint32

const (
	UnopenedState State = iota
	OpenState
	ClosedState
)

func (s State) String() string {
	switch s {
	case UnopenedState:
		return "Unopened"
	case OpenState:
		return "Open"
	case ClosedState:
		return "Closed"
	default:
		return "Unknown"
	}
}

// AtomicState holds a State that moves Unopened -> Open -> Closed and never back.
type AtomicState struct {
	state atomic.Uint32
}

func (st *AtomicState) Get() State {
	return State(st.state.Load())
}

func (st *AtomicState) String() string {
	return st.Get().String()
}

func (st *AtomicState) IsOpen() bool {
	return st.Get() == OpenState
}

func (st *AtomicState) IsClosed() bool {
	return st.Get() == ClosedState
}

// ToOpen moves Unopened to Open.
func (st *AtomicState) ToOpen() bool {
	return st.state.CompareAndSwap(uint32(UnopenedState), uint32(OpenState))
}

// ToClosed moves Open (or Unopened) to Closed. It returns false if the state
// was already Closed.
func (st *AtomicState) ToClosed() bool {
	if st.state.CompareAndSwap(uint32(OpenState), uint32(ClosedState)) {
		return true
	}

	return st.state.CompareAndSwap(uint32(UnopenedState), uint32(ClosedState))
}
