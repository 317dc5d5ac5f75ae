package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
)

// Session owns the port of a discovered Speedo.
type Session struct {
	name string
	port Port
}

// Discover tries each candidate in order and returns a session on the first
// endpoint that echoes HandshakeID within HandshakeAttempts requests.
// Endpoints that fail are closed before moving on. With no candidates, every
// port the opener lists is tried.
func Discover(ctx context.Context, opener Opener, candidates []string) (*Session, error) {
	if len(candidates) == 0 {
		ports, err := opener.Ports()
		if err != nil {
			return nil, fmt.Errorf("list ports: %w", err)
		}
		candidates = ports
	}

	for _, name := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		port, err := opener.Open(name)
		if err != nil {
			log.Printf("device: skipping %s: %v", name, err)
			continue
		}

		ok, err := handshake(port)
		if ok {
			log.Printf("device: found speedo on %s", name)
			return &Session{name: name, port: port}, nil
		}
		if err != nil {
			log.Printf("device: handshake on %s: %v", name, err)
		}
		if err := port.Close(); err != nil {
			log.Printf("device: close %s: %v", name, err)
		}
	}

	return nil, fmt.Errorf("%w (tried %d endpoints)", ErrDeviceNotFound, len(candidates))
}

// handshake reports whether port answers like a Speedo.
// An I/O error ends the attempts for this port early.
func handshake(port Port) (bool, error) {
	for i := 0; i < HandshakeAttempts; i++ {
		if _, err := port.Write([]byte{handshakeRequest}); err != nil {
			return false, fmt.Errorf("write handshake: %w", err)
		}
		line, err := port.ReadLine()
		if err != nil {
			return false, fmt.Errorf("read handshake: %w", err)
		}
		if bytes.Equal(line, []byte(HandshakeID)) {
			return true, nil
		}
	}
	return false, nil
}

// Name returns the endpoint the session was discovered on.
func (s *Session) Name() string {
	return s.name
}

// Sample requests and returns the current speed.
// A reply that is not a number returns an error wrapping ErrBadSample;
// any other error is a transport failure.
func (s *Session) Sample() (float64, error) {
	if s.port == nil {
		return 0, errors.New("session closed")
	}
	if _, err := s.port.Write([]byte{sampleRequest}); err != nil {
		return 0, fmt.Errorf("write sample request: %w", err)
	}
	line, err := s.port.ReadLine()
	if err != nil {
		return 0, fmt.Errorf("read sample: %w", err)
	}
	return ParseSpeed(line)
}

// ParseSpeed decodes one sample line.
func ParseSpeed(line []byte) (float64, error) {
	text := strings.TrimSpace(string(line))
	speed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadSample, text)
	}
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return 0, fmt.Errorf("%w: %q", ErrBadSample, text)
	}
	return speed, nil
}

// Close releases the port. Safe to call more than once.
func (s *Session) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
