// Package simgpu is a software GPU: one in-order queue executed by a goroutine
// and a timeline semaphore signaled as submissions retire. It implements
// pacing.Driver so the pacing core can run, and be tested, without a Vulkan
// device.
package simgpu

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/timeline-triangle/pacing"
)

const queueDepth = 64

type Options struct {
	// Latency is how long each submission takes to execute.
	Latency time.Duration
	Logger  *slog.Logger
}

// Device executes submissions strictly in the order they were queued.
type Device struct {
	latency  time.Duration
	logger   *slog.Logger
	timeline *Timeline

	// queueMu guards sends on queue against Destroy closing it.
	queueMu sync.RWMutex
	queue   chan func()
	done    chan struct{}

	mu        sync.Mutex
	err       error
	executed  int
	draws     int
	destroyed bool
}

var _ pacing.Driver = (*Device)(nil)

func NewDevice(options Options) *Device {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Device{
		latency:  options.Latency,
		logger:   logger,
		timeline: NewTimeline(),
		queue:    make(chan func(), queueDepth),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Device) run() {
	defer close(d.done)
	for op := range d.queue {
		op()
	}
}

// errDestroyed is returned for work queued after Destroy.
var errDestroyed = errors.New("device destroyed")

// enqueue hands op to the queue goroutine.
func (d *Device) enqueue(op func()) error {
	d.queueMu.RLock()
	defer d.queueMu.RUnlock()

	d.mu.Lock()
	destroyed := d.destroyed
	d.mu.Unlock()
	if destroyed {
		return errDestroyed
	}

	d.queue <- op
	return nil
}

// fault records a device-level error. Once faulted, the device rejects every
// further submission, like a lost Vulkan device.
func (d *Device) fault(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err == nil {
		d.logger.Error("simulated device fault", "error", err)
		d.err = err
	}
}

// Err returns the first fault the device observed.
func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Device) Timeline() *Timeline {
	return d.timeline
}

func (d *Device) CreateCommandPool() (pacing.CommandPool, error) {
	pool := &CommandPool{device: d}
	pool.buffer = &CommandBuffer{pool: pool}
	return pool, nil
}

func (d *Device) CreateSemaphore() (pacing.Semaphore, error) {
	return NewSemaphore(), nil
}

func (d *Device) Submit(s pacing.Submission) error {
	err := d.Err()
	if err != nil {
		return errors.Wrap(err, "device lost")
	}

	buffer, ok := s.Buffer.(*CommandBuffer)
	if !ok || buffer.pool.device != d {
		return errors.Newf("submit: %T is not a buffer of this device", s.Buffer)
	}
	if buffer.state != bufferExecutable {
		return errors.New("submit: buffer is not executable")
	}

	waits, err := semaphores(s.Waits)
	if err != nil {
		return err
	}
	signals, err := semaphores(s.Signals)
	if err != nil {
		return err
	}

	buffer.pool.executing.Add(1)
	err = d.enqueue(func() {
		for _, semaphore := range waits {
			semaphore.wait()
		}

		draws := 0
		for _, command := range buffer.commands {
			if command.Op == "draw" {
				draws++
			}
		}
		time.Sleep(d.latency)
		buffer.pool.executing.Add(-1)

		err := d.timeline.Signal(s.TimelineValue)
		if err != nil {
			d.fault(err)
		}
		for _, semaphore := range signals {
			err = semaphore.signal()
			if err != nil {
				d.fault(err)
			}
		}

		d.mu.Lock()
		d.executed++
		d.draws += draws
		d.mu.Unlock()
	})
	if err != nil {
		buffer.pool.executing.Add(-1)
		return errors.Wrap(err, "submit")
	}
	return nil
}

func semaphores(in []pacing.Semaphore) ([]*Semaphore, error) {
	out := make([]*Semaphore, 0, len(in))
	for _, s := range in {
		semaphore, ok := s.(*Semaphore)
		if !ok {
			return nil, errors.Newf("%T is not a simulated semaphore", s)
		}
		out = append(out, semaphore)
	}
	return out, nil
}

func (d *Device) WaitTimeline(value uint64, timeout time.Duration) (bool, error) {
	return d.timeline.Wait(value, timeout), nil
}

func (d *Device) TimelineValue() (uint64, error) {
	return d.timeline.Value(), nil
}

// WaitIdle blocks until every queued submission has executed.
func (d *Device) WaitIdle() error {
	idle := make(chan struct{})
	err := d.enqueue(func() { close(idle) })
	if errors.Is(err, errDestroyed) {
		return nil
	}
	<-idle
	return d.Err()
}

// Executed is the number of submissions that have retired.
func (d *Device) Executed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.executed
}

// Draws is the number of draw commands executed.
func (d *Device) Draws() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draws
}

func (d *Device) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	d.mu.Unlock()

	d.queueMu.Lock()
	close(d.queue)
	d.queueMu.Unlock()
	<-d.done
}
