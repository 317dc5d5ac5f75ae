package device

import (
	"errors"
	"fmt"
)

var errNoSuchDevice = errors.New("no such device")

// FakePort is a test double that returns scripted lines.
type FakePort struct {
	// Lines contains the scripted replies. Each ReadLine consumes the next one;
	// once exhausted ReadLine behaves like a read timeout and returns nothing.
	Lines []string

	// index tracks current position in Lines
	index int

	// Written records every byte written, in order.
	Written []byte

	// ReadError, if set, will be returned by ReadLine.
	ReadError error

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Closed counts calls to Close.
	Closed int
}

// NewFakePort creates a FakePort with the given replies.
func NewFakePort(lines ...string) *FakePort {
	return &FakePort{Lines: lines}
}

// Write records p.
func (f *FakePort) Write(p []byte) (int, error) {
	if f.WriteError != nil {
		return 0, f.WriteError
	}
	f.Written = append(f.Written, p...)
	return len(p), nil
}

// ReadLine returns the next scripted line.
func (f *FakePort) ReadLine() ([]byte, error) {
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if f.index >= len(f.Lines) {
		return nil, nil
	}
	line := f.Lines[f.index]
	f.index++
	return []byte(line), nil
}

// Close counts the call.
func (f *FakePort) Close() error {
	f.Closed++
	return nil
}

// Count returns how many times b was written.
func (f *FakePort) Count(b byte) int {
	n := 0
	for _, w := range f.Written {
		if w == b {
			n++
		}
	}
	return n
}

// FakeOpener hands out FakePorts by name.
type FakeOpener struct {
	// Names is what Ports returns.
	Names []string

	// Endpoints maps names to their fakes. Opening a missing name fails.
	Endpoints map[string]*FakePort

	// Opened records every Open call in order.
	Opened []string

	// ListError, if set, will be returned by Ports.
	ListError error
}

// NewFakeOpener creates an empty opener; use Add to register ports.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{Endpoints: make(map[string]*FakePort)}
}

// Add registers a fake port under name.
func (o *FakeOpener) Add(name string, port *FakePort) *FakeOpener {
	o.Names = append(o.Names, name)
	o.Endpoints[name] = port
	return o
}

// Ports returns the registered names.
func (o *FakeOpener) Ports() ([]string, error) {
	if o.ListError != nil {
		return nil, o.ListError
	}
	return o.Names, nil
}

// Open returns the registered fake for name.
func (o *FakeOpener) Open(name string) (Port, error) {
	o.Opened = append(o.Opened, name)
	p, ok := o.Endpoints[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, errNoSuchDevice)
	}
	return p, nil
}
