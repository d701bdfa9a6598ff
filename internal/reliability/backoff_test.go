package reliability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectDelay(t *testing.T) {
	t.Run("delay grows by one second per attempt up to the cap", func(t *testing.T) {
		d := NewReconnectDelay(5 * time.Second)

		for i := 1; i <= 5; i++ {
			assert.Equal(t, time.Duration(i)*time.Second, d.Next())
		}

		// A sixth failure stays at the cap.
		assert.Equal(t, 5*time.Second, d.Next())
		assert.Equal(t, 5*time.Second, d.Current())
	})

	t.Run("zero maximum means immediate reconnects", func(t *testing.T) {
		d := NewReconnectDelay(0)

		assert.Equal(t, time.Duration(0), d.Next())
		assert.Equal(t, time.Duration(0), d.Next())
	})

	t.Run("reaching ready resets the delay for good", func(t *testing.T) {
		d := NewReconnectDelay(5 * time.Second)

		assert.Equal(t, time.Second, d.Next())
		assert.Equal(t, 2*time.Second, d.Next())

		d.MarkReady()

		assert.Equal(t, time.Duration(0), d.Next())
		assert.Equal(t, time.Duration(0), d.Next())
	})

	t.Run("delay never decreases across consecutive failures", func(t *testing.T) {
		d := NewReconnectDelay(3 * time.Second)

		prev := time.Duration(0)
		for i := 0; i < 10; i++ {
			next := d.Next()
			assert.GreaterOrEqual(t, next, prev)
			assert.LessOrEqual(t, next, 3*time.Second)
			prev = next
		}
	})
}
