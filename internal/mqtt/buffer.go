package mqtt

// message is a serialized publish kept for replay after reconnection.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a bounded FIFO of messages published while disconnected.
// When full the oldest message is discarded. Callers synchronize.
type backlog struct {
	items   []message
	start   int // index of the oldest message
	size    int
	dropped int // discarded since the last drain
}

func newBacklog(capacity int) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	return &backlog{items: make([]message, capacity)}
}

// add queues msg and reports whether an older message had to be discarded.
func (b *backlog) add(msg message) bool {
	end := (b.start + b.size) % len(b.items)
	b.items[end] = msg
	if b.size == len(b.items) {
		b.start = (b.start + 1) % len(b.items)
		b.dropped++
		return true
	}
	b.size++
	return false
}

// drain returns queued messages oldest first, the number dropped since the
// previous drain, and empties the backlog.
func (b *backlog) drain() ([]message, int) {
	dropped := b.dropped
	b.dropped = 0
	if b.size == 0 {
		return nil, dropped
	}

	out := make([]message, b.size)
	for i := range out {
		out[i] = b.items[(b.start+i)%len(b.items)]
		b.items[(b.start+i)%len(b.items)] = message{}
	}
	b.start, b.size = 0, 0
	return out, dropped
}

func (b *backlog) len() int {
	return b.size
}
