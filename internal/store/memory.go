package store

import "sync"

// Memory is an in-process store. It does not survive restarts; it is used
// for dry runs and to inject storage faults in tests.
type Memory struct {
	mu    sync.Mutex
	value int32
	fault error
	saves int
}

// NewMemory returns a memory store holding v.
func NewMemory(v int32) *Memory {
	return &Memory{value: v}
}

// Fail makes every following Load return the default and every Save return
// err. A nil err clears the fault.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.fault = err
	m.mu.Unlock()
}

// Load returns the stored value, or 0 while a fault is set.
func (m *Memory) Load() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fault != nil {
		return 0
	}
	return m.value
}

// Save stores v unless a fault is set.
func (m *Memory) Save(v int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fault != nil {
		return m.fault
	}
	m.value = v
	m.saves++
	return nil
}

// Saves returns the number of successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
