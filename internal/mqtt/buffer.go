package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// A retained message supersedes any older message on the same topic, since the
// broker would only keep the last one anyway.
// Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	dropped  int // messages lost to overflow since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if msg.retained && r.supersede(msg) {
		return
	}
	if r.count == r.capacity {
		if r.dropped == 0 {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", r.capacity)
		}
		r.dropped++
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// supersede removes the buffered retained message for msg.topic, if any, and
// appends msg at the tail. Reports whether a message was replaced.
func (r *ringBuffer) supersede(msg bufferedMsg) bool {
	start := (r.head - r.count + r.capacity) % r.capacity
	found := -1
	for i := 0; i < r.count; i++ {
		m := r.buf[(start+i)%r.capacity]
		if m.retained && m.topic == msg.topic {
			found = i
			break
		}
	}
	if found < 0 {
		return false
	}
	// Shift the newer messages down one slot, then write msg at the tail.
	for i := found; i < r.count-1; i++ {
		r.buf[(start+i)%r.capacity] = r.buf[(start+i+1)%r.capacity]
	}
	r.buf[(start+r.count-1)%r.capacity] = msg
	return true
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	result := make([]bufferedMsg, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	if r.dropped > 0 {
		log.Printf("mqtt: %d buffered messages were dropped while offline", r.dropped)
	}
	r.count = 0
	r.head = 0
	r.dropped = 0
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
