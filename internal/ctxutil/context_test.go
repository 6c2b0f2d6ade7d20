package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, GetUserID(context.Background()))
	})

	t.Run("with user ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithUserID(context.Background(), "U1234567890")
		assert.Equal(t, "U1234567890", GetUserID(ctx))
	})
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	_, ok := GetRequestID(context.Background())
	assert.False(t, ok)

	ctx := WithRequestID(context.Background(), "req-1")
	id, ok := GetRequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestEventIDContext(t *testing.T) {
	t.Parallel()
	assert.Empty(t, GetEventID(context.Background()))
	assert.Equal(t, "01HEVENT", GetEventID(WithEventID(context.Background(), "01HEVENT")))
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithUserID(parent, "U1")
	parent = WithRequestID(parent, "req-2")
	parent = WithEventID(parent, "evt-3")
	cancel()

	detached := PreserveTracing(parent)

	assert.NoError(t, detached.Err(), "detached context must not inherit cancellation")
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
	assert.Equal(t, "U1", GetUserID(detached))
	id, _ := GetRequestID(detached)
	assert.Equal(t, "req-2", id)
	assert.Equal(t, "evt-3", GetEventID(detached))
}
