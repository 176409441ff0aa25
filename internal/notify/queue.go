package notify

import "sync"

// Queue is a thread-safe event buffer that doubles its capacity when it
// reaches 70% full, so publishers never block on a slow consumer.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []Event
	head   int // read position
	tail   int // write position
	count  int
	cap    int
	closed bool

	// Stats
	published int64
	delivered int64
	dropped   int64
	resizes   int
}

// NewQueue creates a queue with the given initial capacity.
func NewQueue(initialCapacity int) *Queue {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &Queue{
		buf: make([]Event, initialCapacity),
		cap: initialCapacity,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Publish adds an event to the queue, growing it if needed. Events
// published after Close are dropped.
func (q *Queue) Publish(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.dropped++
		return
	}

	threshold := (q.cap * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = e
	q.tail = (q.tail + 1) % q.cap
	q.count++
	q.published++

	q.cond.Signal()
}

// Next removes and returns the oldest event, blocking until one is
// available or the queue is closed and drained.
func (q *Queue) Next() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.count == 0 {
		return Event{}, false
	}
	return q.takeLocked(), true
}

// TryNext removes and returns the oldest event without blocking.
func (q *Queue) TryNext() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Event{}, false
	}
	return q.takeLocked(), true
}

// Drain removes up to max events (all if max <= 0).
func (q *Queue) Drain(max int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	n := q.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]Event, n)
	for i := range out {
		out[i] = q.takeLocked()
	}
	return out
}

// Close marks the queue closed. Publishers drop; consumers drain the
// remainder and then see false.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns queue counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:     q.count,
		Capacity:  q.cap,
		Published: q.published,
		Delivered: q.delivered,
		Dropped:   q.dropped,
		Resizes:   q.resizes,
	}
}

// QueueStats contains queue counters.
type QueueStats struct {
	Count     int
	Capacity  int
	Published int64
	Delivered int64
	Dropped   int64
	Resizes   int
}

// takeLocked pops the head event. Caller must hold the lock and have
// verified count > 0.
func (q *Queue) takeLocked() Event {
	e := q.buf[q.head]
	q.buf[q.head] = Event{}
	q.head = (q.head + 1) % q.cap
	q.count--
	q.delivered++
	return e
}

// grow doubles the capacity. Caller must hold the lock.
func (q *Queue) grow() {
	newCap := q.cap * 2
	newBuf := make([]Event, newCap)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.cap = newCap
	q.resizes++
}
