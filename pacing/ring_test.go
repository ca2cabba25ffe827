package pacing

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingSlots(t *testing.T) {
	driver := newFakeDriver()
	ring, err := NewRing(NewDeviceContext(driver, nil), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, ring.SlotCount())
	for i := 0; i < 3; i++ {
		buffer, err := ring.RecordingBuffer(i)
		require.NoError(t, err)
		assert.Same(t, driver.pools[i].buffer, buffer)
	}

	_, err = ring.RecordingBuffer(3)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.True(t, errors.Is(ring.Reset(-1), ErrInvalidState))
}

func TestRingRejectsZeroSlots(t *testing.T) {
	_, err := NewRing(NewDeviceContext(newFakeDriver(), nil), 0)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestRingAllocationFailure(t *testing.T) {
	driver := newFakeDriver()
	driver.failPoolAt = 2

	_, err := NewRing(NewDeviceContext(driver, nil), 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceCreation))
	require.Len(t, driver.pools, 2)
	for _, pool := range driver.pools {
		assert.True(t, pool.destroyed)
	}
}

func TestRingRecordingState(t *testing.T) {
	driver := newFakeDriver()
	ring, err := NewRing(NewDeviceContext(driver, nil), 2)
	require.NoError(t, err)

	assert.True(t, errors.Is(ring.End(0), ErrInvalidState), "end before begin")

	require.NoError(t, ring.Begin(0))
	assert.True(t, errors.Is(ring.Begin(0), ErrInvalidState), "begin twice")
	assert.Equal(t, 1, driver.pools[0].buffer.begins)

	require.NoError(t, ring.End(0))
	assert.True(t, errors.Is(ring.End(0), ErrInvalidState), "end twice")

	require.NoError(t, ring.Begin(1))
	assert.True(t, errors.Is(ring.Reset(1), ErrInvalidState), "reset while recording")
	assert.Empty(t, driver.pools[1].resets)

	require.NoError(t, ring.Reset(0))
	require.NoError(t, ring.Begin(0))
	assert.Equal(t, 2, driver.pools[0].buffer.begins)
	assert.Len(t, driver.pools[0].resets, 1)
	assert.Empty(t, driver.pools[1].resets)
}

func TestRingDestroy(t *testing.T) {
	driver := newFakeDriver()
	ring, err := NewRing(NewDeviceContext(driver, nil), 2)
	require.NoError(t, err)

	ring.Destroy()
	assert.Equal(t, 0, ring.SlotCount())
	for _, pool := range driver.pools {
		assert.True(t, pool.destroyed)
	}
}
