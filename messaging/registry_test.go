package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreate(t *testing.T) {
	t.Run("refuses a duplicate badge", func(t *testing.T) {
		r := NewRegistry(WithRegistryLogger(discardLogger()))

		_, err := r.Create("billing", testConfig(), WithDialer(&fakeDialer{}))
		require.NoError(t, err)

		_, err = r.Create("billing", testConfig(), WithDialer(&fakeDialer{}))
		assert.ErrorIs(t, err, ErrPublisherExists)
	})

	t.Run("empty badge maps to the default badge", func(t *testing.T) {
		r := NewRegistry(WithRegistryLogger(discardLogger()))

		created, err := r.Create("", testConfig(), WithDialer(&fakeDialer{}))
		require.NoError(t, err)

		got, err := r.Get(DefaultBadge)
		require.NoError(t, err)
		assert.Same(t, created, got)
	})
}

func TestRegistryStart(t *testing.T) {
	t.Run("returns once the publisher is up", func(t *testing.T) {
		r := NewRegistry(WithRegistryLogger(discardLogger()))
		_, err := r.Create("billing", testConfig(), WithDialer(&fakeDialer{}))
		require.NoError(t, err)
		defer r.Destroy("billing")

		require.NoError(t, r.Start(context.Background(), "billing"))

		state, msg, err := r.State("billing")
		require.NoError(t, err)
		assert.Equal(t, StateOpen, state)
		assert.Equal(t, "exchange declared, publisher ready", msg)
	})

	t.Run("surfaces the connection error of a failed start", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxReconnectDelay = 200 * time.Millisecond

		r := NewRegistry(WithRegistryLogger(discardLogger()))
		_, err := r.Create("billing", cfg, WithDialer(&fakeDialer{failDials: 1 << 20}))
		require.NoError(t, err)
		defer r.Destroy("billing")

		err = r.Start(context.Background(), "billing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error establishing connection")
	})

	t.Run("unknown badge", func(t *testing.T) {
		r := NewRegistry(WithRegistryLogger(discardLogger()))
		assert.ErrorIs(t, r.Start(context.Background(), "nope"), ErrPublisherUnknown)
	})
}

func TestRegistryStopAndDestroy(t *testing.T) {
	t.Run("stop shuts the publisher down", func(t *testing.T) {
		r := NewRegistry(WithRegistryLogger(discardLogger()))
		p, err := r.Create("billing", testConfig(), WithDialer(&fakeDialer{}))
		require.NoError(t, err)
		require.NoError(t, r.Start(context.Background(), "billing"))

		require.NoError(t, r.Stop("billing"))
		waitStopped(t, p)

		// Stopped but still registered.
		_, err = r.Get("billing")
		assert.NoError(t, err)
	})

	t.Run("destroy removes the badge", func(t *testing.T) {
		r := NewRegistry(WithRegistryLogger(discardLogger()))
		p, err := r.Create("billing", testConfig(), WithDialer(&fakeDialer{}))
		require.NoError(t, err)
		require.NoError(t, r.Start(context.Background(), "billing"))

		r.Destroy("billing")
		waitStopped(t, p)

		_, err = r.Get("billing")
		assert.ErrorIs(t, err, ErrPublisherUnknown)
	})

	t.Run("destroying an unknown badge is a no-op", func(t *testing.T) {
		r := NewRegistry(WithRegistryLogger(discardLogger()))
		r.Destroy("nope")
	})
}

func TestRegistryState(t *testing.T) {
	r := NewRegistry(WithRegistryLogger(discardLogger()))

	_, _, err := r.State("nope")
	assert.ErrorIs(t, err, ErrPublisherUnknown)

	_, err = r.Create("billing", testConfig(), WithDialer(&fakeDialer{}))
	require.NoError(t, err)

	state, msg, err := r.State("billing")
	require.NoError(t, err)
	assert.Equal(t, StateInitializing, state)
	assert.Equal(t, "attempting to start the publisher", msg)
}
