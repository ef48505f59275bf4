package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relay_errors "relaychat/pkg/errors"
)

func TestDeliverEnqueuesFIFO(t *testing.T) {
	c := NewClient(nil, 1)

	require.NoError(t, c.Deliver(context.Background(), []byte("first")))
	require.NoError(t, c.Deliver(context.Background(), []byte("second")))

	assert.Equal(t, []byte("first"), <-c.Send)
	assert.Equal(t, []byte("second"), <-c.Send)
}

func TestDeliverTimesOutWhenQueueFull(t *testing.T) {
	c := NewClient(nil, 1)

	// Nothing drains Send, so fill the buffer completely.
	for i := 0; i < sendQueueSize; i++ {
		require.NoError(t, c.Deliver(context.Background(), []byte("x")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Deliver(ctx, []byte("overflow"))
	assert.ErrorIs(t, err, relay_errors.ErrDeliveryTimeout)
}
