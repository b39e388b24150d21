package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// Connection lifecycle states
const (
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateSubscribed   = "subscribed"
	StateDisconnected = "disconnected"
)

// Events
const (
	EventAuthenticate = "authenticate"
	EventJoin         = "join"
	EventClose        = "close"
)

// ConnectionState snapshot of one hub connection
type ConnectionState struct {
	ConnID       string    `json:"connId"`
	Subject      string    `json:"subject,omitempty"`
	Topics       []string  `json:"topics,omitempty"`
	CurrentState string    `json:"state"`
	Since        time.Time `json:"since"`
}

// Machine lifecycle of a single hub connection
type Machine struct {
	mu            sync.RWMutex
	connID        string
	fsm           *fsm.FSM
	state         *ConnectionState
	onStateChange func(connID, from, to string)
}

// NewMachine creates a machine in the connecting state
func NewMachine(connID string, onStateChange func(connID, from, to string)) *Machine {
	m := &Machine{
		connID:        connID,
		onStateChange: onStateChange,
		state: &ConnectionState{
			ConnID:       connID,
			CurrentState: StateConnecting,
			Since:        time.Now(),
		},
	}

	m.fsm = fsm.NewFSM(
		StateConnecting,
		fsm.Events{
			{Name: EventAuthenticate, Src: []string{StateConnecting}, Dst: StateConnected},
			{Name: EventJoin, Src: []string{StateConnected}, Dst: StateSubscribed},
			{Name: EventClose, Src: []string{StateConnecting, StateConnected, StateSubscribed}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(m.connID, e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// ConnID connection id
func (m *Machine) ConnID() string {
	return m.connID
}

// CurrentState current lifecycle state
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// GetState returns a copy of the connection state
func (m *Machine) GetState() *ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stateCopy := *m.state
	stateCopy.Topics = append([]string(nil), m.state.Topics...)
	stateCopy.CurrentState = m.fsm.Current()
	return &stateCopy
}

// UpdateState mutates the connection details
func (m *Machine) UpdateState(update func(s *ConnectionState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(m.state)
}

// Trigger fires event
func (m *Machine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	m.state.CurrentState = m.fsm.Current()
	m.state.Since = time.Now()
	return nil
}

// CanTransition reports whether event is allowed in the current state
func (m *Machine) CanTransition(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}

// Manager tracks the machines of live connections
type Manager struct {
	mu       sync.RWMutex
	machines map[string]*Machine
	onChange func(connID, from, to string)
}

// NewManager creates a manager
func NewManager(onChange func(connID, from, to string)) *Manager {
	return &Manager{
		machines: make(map[string]*Machine),
		onChange: onChange,
	}
}

// GetOrCreate returns the machine of connID, creating it in the connecting state
func (m *Manager) GetOrCreate(connID string) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if machine, ok := m.machines[connID]; ok {
		return machine
	}

	machine := NewMachine(connID, m.onChange)
	m.machines[connID] = machine
	return machine
}

// Get returns the machine of connID
func (m *Manager) Get(connID string) (*Machine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	machine, ok := m.machines[connID]
	return machine, ok
}

// Remove forgets connID
func (m *Manager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.machines, connID)
}

// GetAllStates snapshots every tracked connection
func (m *Manager) GetAllStates() map[string]*ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]*ConnectionState, len(m.machines))
	for connID, machine := range m.machines {
		states[connID] = machine.GetState()
	}
	return states
}

// CountByState number of tracked connections per lifecycle state
func (m *Manager) CountByState() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := map[string]int{
		StateConnecting: 0,
		StateConnected:  0,
		StateSubscribed: 0,
	}
	for _, machine := range m.machines {
		counts[machine.CurrentState()]++
	}
	return counts
}
