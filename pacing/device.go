package pacing

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
)

// WaitStats summarizes the CPU time spent blocked on the device timeline.
type WaitStats struct {
	// Waits counts the waits that had to block, i.e. where the timeline had
	// not yet reached the requested value.
	Waits    int
	Timeouts int
	Blocked  time.Duration
}

// DeviceContext owns the queue and timeline of a Driver. It is the only place
// that issues GPU submissions.
type DeviceContext struct {
	driver Driver
	logger *slog.Logger

	lastSignaled uint64
	stats        WaitStats
}

func NewDeviceContext(driver Driver, logger *slog.Logger) *DeviceContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceContext{
		driver: driver,
		logger: logger,
	}
}

func (d *DeviceContext) Driver() Driver {
	return d.driver
}

func (d *DeviceContext) CreateCommandPool() (CommandPool, error) {
	pool, err := d.driver.CreateCommandPool()
	if err != nil {
		return nil, resourceErrorf(err, "create command pool")
	}
	if pool == nil || pool.Buffer() == nil {
		if pool != nil {
			pool.Destroy()
		}
		return nil, resourceErrorf(nil, "create command pool: driver returned no primary buffer")
	}
	return pool, nil
}

func (d *DeviceContext) CreateSemaphore() (Semaphore, error) {
	semaphore, err := d.driver.CreateSemaphore()
	if err != nil {
		return nil, resourceErrorf(err, "create semaphore")
	}
	return semaphore, nil
}

// Submit enqueues buffer on the device queue. Completion of the work advances
// the timeline to timelineValue, which must be exactly one past the value of
// the previous submission.
func (d *DeviceContext) Submit(buffer CommandBuffer, waits, signals []Semaphore, timelineValue uint64) error {
	if buffer == nil {
		return invalidStatef("submit: no command buffer")
	}
	if timelineValue != d.lastSignaled+1 {
		return invalidStatef("submit: timeline value %d does not follow last signaled value %d", timelineValue, d.lastSignaled)
	}

	err := d.driver.Submit(Submission{
		Buffer:        buffer,
		Waits:         waits,
		Signals:       signals,
		TimelineValue: timelineValue,
	})
	if err != nil {
		return errors.Wrapf(err, "submit timeline value %d", timelineValue)
	}

	d.lastSignaled = timelineValue
	return nil
}

// LastSubmitted is the timeline value signaled by the most recent submission.
func (d *DeviceContext) LastSubmitted() uint64 {
	return d.lastSignaled
}

// WaitUntil blocks until the timeline has reached or passed value. With a
// finite timeout it fails with ErrTimeout once the timeout elapses. Waiting for
// a value no submission will signal is an ErrInvalidState.
func (d *DeviceContext) WaitUntil(value uint64, timeout time.Duration) error {
	if value > d.lastSignaled {
		return invalidStatef("wait for timeline value %d: last submitted value is %d", value, d.lastSignaled)
	}

	current, err := d.driver.TimelineValue()
	if err != nil {
		return errors.Wrap(err, "read timeline value")
	}
	if current >= value {
		return nil
	}

	start := hrtime.Now()
	reached, err := d.driver.WaitTimeline(value, timeout)
	blocked := hrtime.Since(start)

	d.stats.Waits++
	d.stats.Blocked += blocked
	if err != nil {
		return errors.Wrapf(err, "wait for timeline value %d", value)
	}
	if !reached {
		d.stats.Timeouts++
		return errors.Mark(errors.Newf("timeline value %d not reached within %s (current %d)", value, timeout, current), ErrTimeout)
	}

	d.logger.Debug("waited on timeline", "value", value, "blocked", blocked)
	return nil
}

func (d *DeviceContext) TimelineValue() (uint64, error) {
	return d.driver.TimelineValue()
}

func (d *DeviceContext) WaitIdle() error {
	return d.driver.WaitIdle()
}

func (d *DeviceContext) Stats() WaitStats {
	return d.stats
}

// Close waits for the queue to drain and destroys the driver.
func (d *DeviceContext) Close() error {
	err := d.driver.WaitIdle()
	d.driver.Destroy()
	return err
}
