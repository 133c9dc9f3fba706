package ids

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID_SortsByTime(t *testing.T) {
	now := time.Now()
	a := NewULID(now)
	b := NewULID(now)
	c := NewULID(now.Add(time.Second))

	assert.Len(t, a, 26)
	assert.Less(t, a, b, "monotonic within the same millisecond")
	assert.Less(t, b, c)

	parsed, err := ulid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), parsed.Time())
}

func TestNewIdempotencyKey(t *testing.T) {
	k1 := NewIdempotencyKey()
	k2 := NewIdempotencyKey()
	assert.NotEqual(t, k1, k2)

	_, err := uuid.Parse(k1)
	assert.NoError(t, err)
	assert.NotEmpty(t, NewRequestID())
}
