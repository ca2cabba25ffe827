package simgpu

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/timeline-triangle/pacing"
)

// Timeline is a software timeline semaphore: a counter signaled by the queue
// goroutine and awaited by value from any other goroutine.
type Timeline struct {
	mu      sync.Mutex
	value   uint64
	changed chan struct{}
}

func NewTimeline() *Timeline {
	return &Timeline{changed: make(chan struct{})}
}

func (t *Timeline) Value() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Signal moves the counter to value, waking every waiter. Timeline values must
// strictly increase.
func (t *Timeline) Signal(value uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if value <= t.value {
		return errors.Newf("timeline signaled with %d, already at %d", value, t.value)
	}
	t.value = value
	close(t.changed)
	t.changed = make(chan struct{})
	return nil
}

// Wait blocks until the counter reaches value and reports whether it did so
// before the timeout.
func (t *Timeline) Wait(value uint64, timeout time.Duration) bool {
	var deadline <-chan time.Time
	if timeout != pacing.NoTimeout {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		t.mu.Lock()
		if t.value >= value {
			t.mu.Unlock()
			return true
		}
		changed := t.changed
		t.mu.Unlock()

		select {
		case <-changed:
		case <-deadline:
			return t.Value() >= value
		}
	}
}
