package gpio

import "sync"

// FakeIndicator records every state change for test assertions.
type FakeIndicator struct {
	mu sync.Mutex

	// Changes lists each distinct state the indicator was driven to.
	Changes []bool

	// SetError, if set, is returned by Set.
	SetError error

	on     bool
	Closed bool
}

func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

func (f *FakeIndicator) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	if on != f.on {
		f.Changes = append(f.Changes, on)
		f.on = on
	}
	return nil
}

// On reports the current state.
func (f *FakeIndicator) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

func (f *FakeIndicator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.Closed = true
	return nil
}
