package mqtt

import "log"

// DefaultBufferSize is how many messages are held while the broker is unreachable.
const DefaultBufferSize = 256

// bufferedMsg is a serialized message waiting for the broker to come back.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that drops the oldest message when full.
// Callers synchronize access.
type ringBuffer struct {
	buf      []bufferedMsg
	head     int // next write position
	count    int
	overflow bool // set once a message has been dropped since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	size := len(r.buf)
	if r.count == size {
		if !r.overflow {
			log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", size)
			r.overflow = true
		}
		// head already points at the oldest entry
		r.buf[r.head] = msg
		r.head = (r.head + 1) % size
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % size
	r.count++
}

// drainAll returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	size := len(r.buf)
	out := make([]bufferedMsg, r.count)
	start := (r.head - r.count + size) % size
	for i := range out {
		out[i] = r.buf[(start+i)%size]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
