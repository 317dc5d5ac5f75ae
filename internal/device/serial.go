package device

import (
	"fmt"
	"io"
	"sort"
	"time"

	"go.bug.st/serial"
)

// DefaultPort is where the Speedo usually enumerates on Linux.
const DefaultPort = "/dev/ttyACM0"

// maxLineLen stops a chattering endpoint from growing a line forever.
const maxLineLen = 256

// maxDiscard bounds how much of an overlong line is skipped in one read.
const maxDiscard = 64 * maxLineLen

// SerialOpener opens real serial ports.
type SerialOpener struct {
	ReadTimeout time.Duration
}

// NewSerialOpener creates an opener whose ports time out reads after readTimeout.
func NewSerialOpener(readTimeout time.Duration) *SerialOpener {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &SerialOpener{ReadTimeout: readTimeout}
}

// Ports lists the host's serial ports with DefaultPort first when present.
func (o *SerialOpener) Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ports, func(i, j int) bool {
		return ports[i] == DefaultPort && ports[j] != DefaultPort
	})
	return ports, nil
}

// Open opens name at BaudRate, 8N1.
func (o *SerialOpener) Open(name string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := p.SetReadTimeout(o.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return &serialPort{port: p}, nil
}

// serialPort adapts serial.Port to Port.
type serialPort struct {
	port serial.Port
}

func (s *serialPort) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// ReadLine reads one byte at a time so that nothing past the terminator is
// consumed. go.bug.st/serial signals a timeout with a zero-length read.
func (s *serialPort) ReadLine() ([]byte, error) {
	return readLine(s.port)
}

// readLine returns one line from r, which must report a read timeout as a
// zero-length read. A line longer than maxLineLen is dropped through its
// terminator and reported as ErrBadSample so its tail never parses as a sample.
func readLine(r io.Reader) ([]byte, error) {
	var line []byte
	buf := make([]byte, 1)
	for len(line) < maxLineLen {
		n, err := r.Read(buf)
		if err != nil {
			return line, err
		}
		if n == 0 {
			return line, nil
		}
		line = append(line, buf[0])
		if buf[0] == '\n' {
			return line, nil
		}
	}

	for dropped := 0; dropped < maxDiscard; dropped++ {
		n, err := r.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 || buf[0] == '\n' {
			break
		}
	}
	return nil, fmt.Errorf("%w: line longer than %d bytes", ErrBadSample, maxLineLen)
}

func (s *serialPort) Close() error {
	return s.port.Close()
}
