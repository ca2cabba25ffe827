package simgpu

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/timeline-triangle/pacing"
)

func TestTimeline(t *testing.T) {
	timeline := NewTimeline()
	assert.False(t, timeline.Wait(1, time.Millisecond))

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = timeline.Signal(1)
		_ = timeline.Signal(2)
	}()
	assert.True(t, timeline.Wait(2, pacing.NoTimeout))
	assert.Equal(t, uint64(2), timeline.Value())

	assert.Error(t, timeline.Signal(2))
	assert.Error(t, timeline.Signal(1))
	assert.True(t, timeline.Wait(1, 0))
}

func recordedSubmission(t *testing.T, device *Device, value uint64) (*CommandPool, pacing.Submission) {
	t.Helper()
	p, err := device.CreateCommandPool()
	require.NoError(t, err)
	pool := p.(*CommandPool)

	require.NoError(t, pool.buffer.BeginRecording())
	pool.buffer.CmdClear(mgl32.Vec4{0, 0, 0, 0})
	pool.buffer.CmdDraw(3, 1)
	require.NoError(t, pool.buffer.EndRecording())

	return pool, pacing.Submission{Buffer: pool.buffer, TimelineValue: value}
}

func TestDeviceExecutesInOrder(t *testing.T) {
	device := NewDevice(Options{Latency: time.Millisecond})
	defer device.Destroy()

	for value := uint64(1); value <= 5; value++ {
		_, submission := recordedSubmission(t, device, value)
		require.NoError(t, device.Submit(submission))
	}

	require.True(t, device.Timeline().Wait(3, time.Second))
	require.NoError(t, device.WaitIdle())
	assert.Equal(t, uint64(5), device.Timeline().Value())
	assert.Equal(t, 5, device.Executed())
	assert.Equal(t, 5, device.Draws())
}

func TestDeviceRejectsOutOfOrderTimeline(t *testing.T) {
	device := NewDevice(Options{})
	defer device.Destroy()

	_, first := recordedSubmission(t, device, 2)
	_, second := recordedSubmission(t, device, 1)
	require.NoError(t, device.Submit(first))
	require.NoError(t, device.Submit(second))

	assert.Error(t, device.WaitIdle())
	assert.Error(t, device.Err())
}

func TestDeviceRejectsUnfinishedBuffer(t *testing.T) {
	device := NewDevice(Options{})
	defer device.Destroy()

	pool, err := device.CreateCommandPool()
	require.NoError(t, err)
	require.NoError(t, pool.Buffer().BeginRecording())

	err = device.Submit(pacing.Submission{Buffer: pool.Buffer(), TimelineValue: 1})
	assert.Error(t, err)
}

func TestPoolResetWhileExecuting(t *testing.T) {
	device := NewDevice(Options{Latency: 100 * time.Millisecond})
	defer device.Destroy()

	pool, submission := recordedSubmission(t, device, 1)
	require.NoError(t, device.Submit(submission))

	assert.Error(t, pool.Reset())
	assert.Error(t, device.Err())
	assert.Equal(t, 0, pool.Resets())

	_, next := recordedSubmission(t, device, 2)
	assert.Error(t, device.Submit(next), "faulted device rejects submissions")
}

func TestBufferRequiresReset(t *testing.T) {
	device := NewDevice(Options{})
	defer device.Destroy()

	pool, submission := recordedSubmission(t, device, 1)
	require.NoError(t, device.Submit(submission))
	require.NoError(t, device.WaitIdle())

	assert.Error(t, pool.buffer.BeginRecording())
	require.NoError(t, pool.Reset())
	assert.Empty(t, pool.buffer.Commands())
	assert.NoError(t, pool.buffer.BeginRecording())
}

func TestSwapchainPresentsAfterRender(t *testing.T) {
	device := NewDevice(Options{Latency: time.Millisecond})
	defer device.Destroy()

	swapchain, err := NewSwapchain(device, 3)
	require.NoError(t, err)

	renderComplete := NewSemaphore()
	for value := uint64(1); value <= 4; value++ {
		imageAvailable := NewSemaphore()
		image, err := swapchain.Acquire(imageAvailable)
		require.NoError(t, err)

		_, submission := recordedSubmission(t, device, value)
		submission.Waits = []pacing.Semaphore{imageAvailable}
		submission.Signals = []pacing.Semaphore{renderComplete}
		require.NoError(t, device.Submit(submission))
		require.NoError(t, swapchain.Present(image, renderComplete))
	}

	require.NoError(t, device.WaitIdle())
	assert.Equal(t, []int{0, 1, 2, 0}, swapchain.Presented())

	_, err = NewSwapchain(device, 0)
	assert.Error(t, err)
	assert.Error(t, swapchain.Present(3, renderComplete))
}

func TestSemaphoreSignaledTwice(t *testing.T) {
	semaphore := NewSemaphore()
	require.NoError(t, semaphore.signal())
	assert.Error(t, semaphore.signal())

	semaphore.wait()
	assert.NoError(t, semaphore.signal())
}

func TestSubmitForeignSemaphore(t *testing.T) {
	device := NewDevice(Options{})
	defer device.Destroy()

	_, submission := recordedSubmission(t, device, 1)
	submission.Waits = []pacing.Semaphore{foreignSemaphore{}}
	err := device.Submit(submission)
	require.Error(t, err)
	assert.False(t, errors.Is(err, pacing.ErrInvalidState))
}

type foreignSemaphore struct{}

func (foreignSemaphore) Destroy() {}

func TestDeviceRejectsWorkAfterDestroy(t *testing.T) {
	device := NewDevice(Options{})
	pool, submission := recordedSubmission(t, device, 1)
	swapchain, err := NewSwapchain(device, 2)
	require.NoError(t, err)

	device.Destroy()

	assert.NotPanics(t, func() {
		err = device.Submit(submission)
	})
	assert.True(t, errors.Is(err, errDestroyed))
	assert.Equal(t, int32(0), pool.executing.Load())

	assert.NotPanics(t, func() {
		err = swapchain.Present(0, NewSemaphore())
	})
	assert.True(t, errors.Is(err, errDestroyed))

	assert.NoError(t, device.WaitIdle())
	device.Destroy()
}
