package keyboard

import "fmt"

// Op identifies a keyboard call.
type Op string

const (
	OpKeyDown Op = "down"
	OpKeyUp   Op = "up"
	OpPress   Op = "press"
	OpType    Op = "type"
)

// Call is one recorded keyboard call.
type Call struct {
	Op   Op
	Name string // key name, or literal text for OpType
}

func (c Call) String() string {
	return fmt.Sprintf("%s:%s", c.Op, c.Name)
}

// FakeKeyboard records keyboard calls for test assertions.
type FakeKeyboard struct {
	// Calls contains every successful call in order.
	Calls []Call

	// Err, if set, is returned by every call and nothing is recorded.
	Err error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeKeyboard creates a FakeKeyboard for testing.
func NewFakeKeyboard() *FakeKeyboard {
	return &FakeKeyboard{}
}

func (f *FakeKeyboard) record(op Op, name string) error {
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, Call{Op: op, Name: name})
	return nil
}

// KeyDown records a key down.
func (f *FakeKeyboard) KeyDown(name string) error { return f.record(OpKeyDown, name) }

// KeyUp records a key up.
func (f *FakeKeyboard) KeyUp(name string) error { return f.record(OpKeyUp, name) }

// Press records a single press.
func (f *FakeKeyboard) Press(name string) error { return f.record(OpPress, name) }

// TypeLiteral records typed text.
func (f *FakeKeyboard) TypeLiteral(text string) error { return f.record(OpType, text) }

// Close marks the keyboard as closed.
func (f *FakeKeyboard) Close() error {
	f.Closed = true
	return nil
}

// Count returns how many recorded calls match op and name.
func (f *FakeKeyboard) Count(op Op, name string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Op == op && c.Name == name {
			n++
		}
	}
	return n
}

// Held returns the keys that have more downs than ups.
func (f *FakeKeyboard) Held() []string {
	depth := make(map[string]int)
	var order []string
	for _, c := range f.Calls {
		switch c.Op {
		case OpKeyDown:
			if _, seen := depth[c.Name]; !seen {
				order = append(order, c.Name)
			}
			depth[c.Name]++
		case OpKeyUp:
			depth[c.Name]--
		}
	}
	var held []string
	for _, name := range order {
		if depth[name] > 0 {
			held = append(held, name)
		}
	}
	return held
}

// Reset clears recorded calls.
func (f *FakeKeyboard) Reset() {
	f.Calls = nil
	f.Err = nil
	f.Closed = false
}
