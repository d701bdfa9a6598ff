package contracts

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Run("generates a unique id per message", func(t *testing.T) {
		a := NewMessage("orders.created", []byte("a"))
		b := NewMessage("orders.created", []byte("b"))

		_, err := uuid.Parse(a.ID)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("detects the content type from the payload", func(t *testing.T) {
		m := NewMessage("orders.created", []byte(`{"order": 42}`))
		assert.Contains(t, m.ContentType, "application/json")

		m = NewMessage("orders.created", []byte("plain text payload"))
		assert.Contains(t, m.ContentType, "text/plain")
	})

	t.Run("an explicit content type wins over detection", func(t *testing.T) {
		m := NewMessage("orders.created", []byte(`{"order": 42}`),
			WithContentType("application/vnd.acme.order+json"))
		assert.Equal(t, "application/vnd.acme.order+json", m.ContentType)
	})

	t.Run("options set id and headers", func(t *testing.T) {
		headers := map[string]any{"tenant": "acme"}
		m := NewMessage("orders.created", []byte("x"),
			WithMessageID("order-42"),
			WithHeaders(headers))

		assert.Equal(t, "order-42", m.ID)
		assert.Equal(t, headers, m.Headers)
		assert.Equal(t, "orders.created", m.RoutingKey)
		assert.Equal(t, []byte("x"), m.Body)
	})
}
