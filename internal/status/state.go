package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
)

// State is the lifecycle state of the open chat room.
type State string

const (
	Unattached State = "UNATTACHED"
	Resolving  State = "RESOLVING"
	Attaching  State = "ATTACHING"
	Streaming  State = "STREAMING"
	Degraded   State = "DEGRADED"
	Failed     State = "FAILED"
	Archived   State = "ARCHIVED"
	Closed     State = "CLOSED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Unattached: {Resolving, Closed},
	Resolving:  {Attaching, Failed, Closed},
	Attaching:  {Streaming, Degraded, Archived, Closed},
	Streaming:  {Degraded, Archived, Closed},
	Degraded:   {Attaching, Archived, Closed},
	Failed:     {Resolving, Closed},
	Archived:   {Resolving, Closed},
	Closed:     {Resolving},
}

// Machine tracks and enforces room lifecycle transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	feedID  string
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Unattached state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Unattached,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// FeedID returns the feed the current state refers to.
func (m *Machine) FeedID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.feedID
}

// Transition attempts to move to a new state for feedID. Returns error if the
// transition is invalid.
func (m *Machine) Transition(feedID string, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.feedID = feedID
	m.bus.Publish(bus.NewEvent(bus.KindRoomStatus, StatusChange{
		FeedID: feedID,
		From:   from,
		To:     to,
	}))
	return nil
}

// IsTerminal reports whether no further room activity can happen in s
// without opening a room again.
func (s State) IsTerminal() bool {
	switch s {
	case Failed, Archived, Closed:
		return true
	default:
		return false
	}
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	FeedID string
	From   State
	To     State
}
