// Package device talks to the DeskCycle Speedo over a serial line.
// The real transport uses go.bug.st/serial.
// The fake transport allows testing without hardware.
package device

import (
	"errors"
	"time"
)

// Protocol constants.
const (
	// HandshakeID is the exact line the Speedo answers to a handshake request.
	HandshakeID = "DeskCycle Speedo\r\n"

	// BaudRate is fixed for this sensor family.
	BaudRate = 9600

	// HandshakeAttempts bounds how many handshake requests each endpoint gets.
	HandshakeAttempts = 3

	// DefaultReadTimeout bounds a single line read.
	DefaultReadTimeout = time.Second

	handshakeRequest = 'h'
	sampleRequest    = 's'
)

var (
	// ErrDeviceNotFound means no candidate endpoint answered the handshake.
	ErrDeviceNotFound = errors.New("speedo not found")

	// ErrBadSample means a sample line did not parse as a speed.
	// The device emits blank lines while warming up, so this is expected and transient.
	ErrBadSample = errors.New("bad sample")
)

// Port is an open byte-oriented connection to one endpoint.
type Port interface {
	// Write sends raw bytes.
	Write(p []byte) (int, error)

	// ReadLine returns the next line including its terminator.
	// A read that times out returns whatever arrived (possibly nothing) and a nil error.
	// A line too long to be a reply is skipped and reported as ErrBadSample.
	ReadLine() ([]byte, error)

	// Close releases the endpoint.
	Close() error
}

// Opener enumerates and opens endpoints.
type Opener interface {
	// Ports lists candidate endpoints on this host.
	Ports() ([]string, error)

	// Open opens one endpoint at BaudRate with a bounded read timeout.
	Open(name string) (Port, error)
}
