package mqtt

// bufferedMsg is a serialized message held for replay after reconnecting.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO. When full, the oldest message is
// overwritten. Not safe for concurrent use.
type ringBuffer struct {
	msgs    []bufferedMsg
	next    int
	count   int
	dropped int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

// push stores m and reports whether this push started dropping messages
// since the last drain, so the caller can warn once per outage.
func (r *ringBuffer) push(m bufferedMsg) (firstDrop bool) {
	r.msgs[r.next] = m
	r.next = (r.next + 1) % len(r.msgs)
	if r.count < len(r.msgs) {
		r.count++
		return false
	}
	r.dropped++
	return r.dropped == 1
}

// drainAll returns the held messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	out := make([]bufferedMsg, 0, r.count)
	start := (r.next - r.count + len(r.msgs)) % len(r.msgs)
	for i := 0; i < r.count; i++ {
		out = append(out, r.msgs[(start+i)%len(r.msgs)])
	}
	r.next, r.count, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int { return r.count }
