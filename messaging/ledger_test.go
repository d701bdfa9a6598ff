package messaging

import (
	"testing"

	"github.com/steadymq/steadymq-go/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(key string) *contracts.Message {
	return contracts.NewMessage(key, []byte("payload"))
}

func TestDeliveryLedger(t *testing.T) {
	t.Run("record rejects a duplicate sequence", func(t *testing.T) {
		l := newDeliveryLedger()

		require.NoError(t, l.record(1, testMessage("a")))
		assert.ErrorIs(t, l.record(1, testMessage("b")), ErrSequencePending)
		assert.Equal(t, 1, l.pendingCount())
	})

	t.Run("single ack resolves exactly one entry", func(t *testing.T) {
		l := newDeliveryLedger()
		require.NoError(t, l.record(1, testMessage("a")))
		require.NoError(t, l.record(2, testMessage("b")))

		assert.Equal(t, 1, l.resolve(1, true, false))

		acked, nacked := l.counters()
		assert.Equal(t, uint64(1), acked)
		assert.Equal(t, uint64(0), nacked)
		assert.Equal(t, 1, l.pendingCount())
	})

	t.Run("single nack counts as rejected", func(t *testing.T) {
		l := newDeliveryLedger()
		require.NoError(t, l.record(1, testMessage("a")))

		assert.Equal(t, 1, l.resolve(1, false, false))

		acked, nacked := l.counters()
		assert.Equal(t, uint64(0), acked)
		assert.Equal(t, uint64(1), nacked)
	})

	t.Run("cumulative ack resolves every still-pending sequence up to the tag", func(t *testing.T) {
		l := newDeliveryLedger()
		for seq := uint64(1); seq <= 3; seq++ {
			require.NoError(t, l.record(seq, testMessage("m")))
		}

		assert.Equal(t, 2, l.resolve(2, true, true))

		acked, _ := l.counters()
		assert.Equal(t, uint64(2), acked)
		assert.Equal(t, 1, l.pendingCount())

		// Sequence 3 stays untouched and resolvable.
		assert.Equal(t, 1, l.resolve(3, true, false))
		assert.Equal(t, 0, l.pendingCount())
	})

	t.Run("cumulative ack skips sequences already resolved individually", func(t *testing.T) {
		l := newDeliveryLedger()
		for seq := uint64(1); seq <= 4; seq++ {
			require.NoError(t, l.record(seq, testMessage("m")))
		}

		require.Equal(t, 1, l.resolve(2, true, false))
		assert.Equal(t, 2, l.resolve(3, true, true)) // resolves 1 and 3 only

		acked, _ := l.counters()
		assert.Equal(t, uint64(3), acked)
		assert.Equal(t, 1, l.pendingCount())
	})

	t.Run("unknown sequence is a no-op", func(t *testing.T) {
		l := newDeliveryLedger()
		require.NoError(t, l.record(1, testMessage("a")))

		assert.Equal(t, 0, l.resolve(42, true, false))

		acked, nacked := l.counters()
		assert.Equal(t, uint64(0), acked)
		assert.Equal(t, uint64(0), nacked)
		assert.Equal(t, 1, l.pendingCount())
	})

	t.Run("acked plus nacked equals everything recorded once fully resolved", func(t *testing.T) {
		l := newDeliveryLedger()
		for seq := uint64(1); seq <= 10; seq++ {
			require.NoError(t, l.record(seq, testMessage("m")))
		}

		l.resolve(3, true, true)   // 1,2,3 acked
		l.resolve(5, false, false) // 5 nacked
		l.resolve(8, true, true)   // 4,6,7,8 acked
		l.resolve(10, false, true) // 9,10 nacked

		acked, nacked := l.counters()
		assert.Equal(t, uint64(10), acked+nacked)
		assert.Equal(t, 0, l.pendingCount())
	})
}
