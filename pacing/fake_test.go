package pacing

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// fakeDriver is a GPU whose timeline only moves when the CPU waits on it or
// when a test calls complete, which makes every wait observable.
type fakeDriver struct {
	timeline uint64

	// stalled makes WaitTimeline time out instead of completing work.
	stalled bool

	failPoolAt    int
	failSemaphore bool

	pools      []*fakePool
	semaphores []*fakeSemaphore
	submits    []Submission
	waits      []uint64
	events     []string
	destroyed  bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{failPoolAt: -1}
}

func (d *fakeDriver) CreateCommandPool() (CommandPool, error) {
	if d.failPoolAt == len(d.pools) {
		return nil, errors.New("out of device memory")
	}
	pool := &fakePool{driver: d, index: len(d.pools)}
	pool.buffer = &fakeBuffer{pool: pool}
	d.pools = append(d.pools, pool)
	return pool, nil
}

func (d *fakeDriver) CreateSemaphore() (Semaphore, error) {
	if d.failSemaphore {
		return nil, errors.New("out of host memory")
	}
	semaphore := &fakeSemaphore{}
	d.semaphores = append(d.semaphores, semaphore)
	return semaphore, nil
}

func (d *fakeDriver) Submit(s Submission) error {
	d.submits = append(d.submits, s)
	d.events = append(d.events, fmt.Sprintf("submit(%d)", s.TimelineValue))
	return nil
}

// WaitTimeline completes work up to value. Like a real device it cannot get
// past the last submission.
func (d *fakeDriver) WaitTimeline(value uint64, timeout time.Duration) (bool, error) {
	d.waits = append(d.waits, value)
	d.events = append(d.events, fmt.Sprintf("wait(%d)", value))
	if d.stalled {
		return false, nil
	}
	if value > d.lastSubmitted() {
		return false, errors.Newf("wait(%d) would never return: last submitted %d", value, d.lastSubmitted())
	}
	d.complete(value)
	return true, nil
}

func (d *fakeDriver) lastSubmitted() uint64 {
	if len(d.submits) == 0 {
		return 0
	}
	return d.submits[len(d.submits)-1].TimelineValue
}

func (d *fakeDriver) TimelineValue() (uint64, error) {
	return d.timeline, nil
}

// complete retires every submission up to value.
func (d *fakeDriver) complete(value uint64) {
	if value > d.timeline {
		d.timeline = value
	}
}

func (d *fakeDriver) WaitIdle() error {
	d.complete(d.lastSubmitted())
	return nil
}

func (d *fakeDriver) Destroy() {
	d.destroyed = true
}

type resetRecord struct {
	slot     int
	timeline uint64
}

type fakePool struct {
	driver    *fakeDriver
	index     int
	buffer    *fakeBuffer
	resets    []resetRecord
	destroyed bool
}

func (p *fakePool) Reset() error {
	p.resets = append(p.resets, resetRecord{slot: p.index, timeline: p.driver.timeline})
	p.driver.events = append(p.driver.events, fmt.Sprintf("reset(%d)", p.index))
	p.buffer.commands = nil
	return nil
}

func (p *fakePool) Buffer() CommandBuffer {
	return p.buffer
}

func (p *fakePool) Destroy() {
	p.destroyed = true
}

type fakeBuffer struct {
	pool     *fakePool
	begins   int
	ends     int
	commands []string
}

func (b *fakeBuffer) BeginRecording() error {
	b.begins++
	return nil
}

func (b *fakeBuffer) EndRecording() error {
	b.ends++
	return nil
}

type fakeSemaphore struct {
	destroyed bool
}

func (s *fakeSemaphore) Destroy() {
	s.destroyed = true
}
