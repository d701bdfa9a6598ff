package messaging

import (
	"sync"

	"github.com/steadymq/steadymq-go/contracts"
)

// outboundQueue buffers submitted messages until the event loop transmits
// them. Sequence numbers are per-connection monotonic counters starting at 1;
// a fresh queue is installed for every connection cycle, so sequence numbers
// do not survive a reconnect.
type outboundQueue struct {
	mu              sync.Mutex
	lastSubmitted   uint64
	lastTransmitted uint64
	waiting         map[uint64]*contracts.Message
}

func newOutboundQueue() *outboundQueue {
	return &outboundQueue{
		waiting: make(map[uint64]*contracts.Message),
	}
}

// enqueue assigns the next sequence number and buffers the message.
func (q *outboundQueue) enqueue(msg *contracts.Message) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.lastSubmitted++
	q.waiting[q.lastSubmitted] = msg
	return q.lastSubmitted
}

// next pops the oldest not-yet-transmitted message and advances the
// transmission counter. ok is false when nothing is waiting.
func (q *outboundQueue) next() (seq uint64, msg *contracts.Message, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.lastTransmitted == q.lastSubmitted {
		return 0, nil, false
	}

	seq = q.lastTransmitted + 1
	msg = q.waiting[seq]
	delete(q.waiting, seq)
	q.lastTransmitted = seq
	return seq, msg, true
}

func (q *outboundQueue) stats() (lastSubmitted, lastTransmitted uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastSubmitted, q.lastTransmitted
}
