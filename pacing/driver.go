package pacing

import (
	"math"
	"time"
)

// NoTimeout makes a timeline wait block until the value is reached.
const NoTimeout = time.Duration(math.MaxInt64)

// CommandBuffer is a primary command buffer allocated from a CommandPool.
// Backends embed their native buffer type alongside these two methods so that
// callers can record draw commands into it directly.
type CommandBuffer interface {
	BeginRecording() error
	EndRecording() error
}

// CommandPool is a resettable command pool owning exactly one primary buffer.
type CommandPool interface {
	// Reset releases every command recorded into the pool's buffer.
	Reset() error
	Buffer() CommandBuffer
	Destroy()
}

// Semaphore is a binary GPU-GPU signal.
type Semaphore interface {
	Destroy()
}

// Submission is a single batch of work for the device queue.
type Submission struct {
	Buffer CommandBuffer

	// Waits are binary semaphores the work waits on before running.
	Waits []Semaphore
	// Signals are binary semaphores signaled when the work completes.
	Signals []Semaphore

	// TimelineValue is the value the device timeline reaches once this
	// submission retires.
	TimelineValue uint64
}

// Driver is the device-level backend a DeviceContext is built on: one queue and
// one timeline synchronization primitive.
type Driver interface {
	CreateCommandPool() (CommandPool, error)
	CreateSemaphore() (Semaphore, error)

	// Submit enqueues s on the driver's single queue.
	Submit(s Submission) error

	// WaitTimeline blocks until the timeline reaches value. It reports false
	// when the timeout elapsed first.
	WaitTimeline(value uint64, timeout time.Duration) (bool, error)
	TimelineValue() (uint64, error)

	WaitIdle() error
	Destroy()
}
