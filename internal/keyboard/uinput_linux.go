//go:build linux

package keyboard

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultUinputPath is the uinput control device.
const DefaultUinputPath = "/dev/uinput"

const (
	evSyn     = 0x00
	evKey     = 0x01
	synReport = 0x00

	keyReleased = 0
	keyPressed  = 1

	busUSB = 0x03
)

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
)

func ioc(dir, typ, nr, size uint32) uint {
	return uint((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift))
}

var (
	uiDevCreate  = ioc(iocNone, 'U', 1, 0)
	uiDevDestroy = ioc(iocNone, 'U', 2, 0)
	uiSetEvBit   = ioc(iocWrite, 'U', 100, uint32(unsafe.Sizeof(int32(0))))
	uiSetKeyBit  = ioc(iocWrite, 'U', 101, uint32(unsafe.Sizeof(int32(0))))
)

const absCnt = 64

// uinputUserDev mirrors struct uinput_user_dev.
type uinputUserDev struct {
	Name      [80]byte
	Bustype   uint16
	Vendor    uint16
	Product   uint16
	Version   uint16
	FFEffects uint32
	AbsMax    [absCnt]int32
	AbsMin    [absCnt]int32
	AbsFuzz   [absCnt]int32
	AbsFlat   [absCnt]int32
}

// inputEvent mirrors struct input_event; Timeval carries the platform's word size.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Uinput is a virtual keyboard backed by /dev/uinput.
type Uinput struct {
	mu sync.Mutex
	f  *os.File
}

// NewUinput creates a virtual keyboard device named name.
// The caller needs write access to path (usually root or the "input" group).
func NewUinput(path, name string) (*Uinput, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	fd := int(f.Fd())

	if err := unix.IoctlSetInt(fd, uiSetEvBit, evKey); err != nil {
		f.Close()
		return nil, fmt.Errorf("enable key events: %w", err)
	}
	for _, code := range allCodes() {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(code)); err != nil {
			f.Close()
			return nil, fmt.Errorf("enable key %d: %w", code, err)
		}
	}

	var dev uinputUserDev
	copy(dev.Name[:len(dev.Name)-1], name)
	dev.Bustype = busUSB
	dev.Vendor = 0x1d6b
	dev.Product = 0x0104
	dev.Version = 1
	devBytes := unsafe.Slice((*byte)(unsafe.Pointer(&dev)), unsafe.Sizeof(dev))
	if _, err := f.Write(devBytes); err != nil {
		f.Close()
		return nil, fmt.Errorf("write device description: %w", err)
	}

	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("create device: %w", err)
	}

	// Give the display server time to pick up the new device before the first event.
	time.Sleep(200 * time.Millisecond)

	return &Uinput{f: f}, nil
}

func (u *Uinput) emit(typ, code uint16, value int32) error {
	ev := inputEvent{
		Time:  unix.NsecToTimeval(time.Now().UnixNano()),
		Type:  typ,
		Code:  code,
		Value: value,
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&ev)), unsafe.Sizeof(ev))
	_, err := u.f.Write(b)
	return err
}

func (u *Uinput) key(code uint16, value int32) error {
	if err := u.emit(evKey, code, value); err != nil {
		return err
	}
	return u.emit(evSyn, synReport, 0)
}

func (u *Uinput) down(s stroke) error {
	if s.shift {
		if err := u.key(keyLeftShift, keyPressed); err != nil {
			return err
		}
	}
	return u.key(s.code, keyPressed)
}

func (u *Uinput) up(s stroke) error {
	if err := u.key(s.code, keyReleased); err != nil {
		return err
	}
	if s.shift {
		return u.key(keyLeftShift, keyReleased)
	}
	return nil
}

func (u *Uinput) stroke(name string) (stroke, error) {
	s, ok := lookup(name)
	if !ok {
		return stroke{}, fmt.Errorf("unknown key %q", name)
	}
	if u.f == nil {
		return stroke{}, errors.New("keyboard closed")
	}
	return s, nil
}

// KeyDown presses and holds the named key.
func (u *Uinput) KeyDown(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, err := u.stroke(name)
	if err != nil {
		return err
	}
	return u.down(s)
}

// KeyUp releases the named key.
func (u *Uinput) KeyUp(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, err := u.stroke(name)
	if err != nil {
		return err
	}
	return u.up(s)
}

// Press taps the named key once.
func (u *Uinput) Press(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, err := u.stroke(name)
	if err != nil {
		return err
	}
	if err := u.down(s); err != nil {
		return err
	}
	return u.up(s)
}

// TypeLiteral types text one character at a time.
// Characters with no US-layout key fail the whole call before anything is typed.
func (u *Uinput) TypeLiteral(text string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.f == nil {
		return errors.New("keyboard closed")
	}

	strokes := make([]stroke, 0, len(text))
	for _, r := range text {
		s, ok := strokeFor(r)
		if !ok {
			return fmt.Errorf("cannot type %q", r)
		}
		strokes = append(strokes, s)
	}
	for _, s := range strokes {
		if err := u.down(s); err != nil {
			return err
		}
		if err := u.up(s); err != nil {
			return err
		}
	}
	return nil
}

// Close destroys the virtual device.
func (u *Uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.f == nil {
		return nil
	}

	var errs []error
	if err := unix.IoctlSetInt(int(u.f.Fd()), uiDevDestroy, 0); err != nil {
		errs = append(errs, fmt.Errorf("destroy device: %w", err))
	}
	if err := u.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close uinput: %w", err))
	}
	u.f = nil
	return errors.Join(errs...)
}
