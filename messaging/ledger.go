package messaging

import (
	"sync"

	"github.com/steadymq/steadymq-go/contracts"
)

// deliveryLedger tracks every transmitted message until the broker confirms
// or rejects it. Submissions come from caller goroutines while resolutions
// come from the event loop, so every operation holds the mutex. A fresh
// ledger is installed for every connection cycle.
type deliveryLedger struct {
	mu      sync.Mutex
	pending map[uint64]*contracts.Message
	acked   uint64
	nacked  uint64
}

func newDeliveryLedger() *deliveryLedger {
	return &deliveryLedger{
		pending: make(map[uint64]*contracts.Message),
	}
}

// record inserts a pending entry. A duplicate sequence is a logic error.
func (l *deliveryLedger) record(seq uint64, msg *contracts.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.pending[seq]; exists {
		return ErrSequencePending
	}
	l.pending[seq] = msg
	return nil
}

// resolve applies a broker verdict. A cumulative verdict resolves every
// still-pending sequence up to and including seq. An unknown sequence is
// ignored: the broker may replay confirmations after a reconnect. It returns
// the number of entries resolved.
func (l *deliveryLedger) resolve(seq uint64, ack, multiple bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	resolved := 0
	if _, exists := l.pending[seq]; exists {
		delete(l.pending, seq)
		resolved++
	}
	if multiple {
		for tag := range l.pending {
			if tag < seq {
				delete(l.pending, tag)
				resolved++
			}
		}
	}

	if ack {
		l.acked += uint64(resolved)
	} else {
		l.nacked += uint64(resolved)
	}
	return resolved
}

// pendingCount reports the size of the unresolved set, for observability.
func (l *deliveryLedger) pendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *deliveryLedger) counters() (acked, nacked uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acked, l.nacked
}
