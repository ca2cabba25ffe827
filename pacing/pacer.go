package pacing

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Frame is a recording buffer handed out by the Pacer, ready for commands.
type Frame struct {
	// Index is the frame's position in the sequence of acquired frames.
	Index uint64
	// Slot is the ring slot the buffer belongs to, Index mod SlotCount.
	Slot   int
	Buffer CommandBuffer
	// Target is the timeline value the submission of this frame must signal.
	Target uint64
}

// PacerStats describes the pacer's progress.
type PacerStats struct {
	Frames   uint64
	Recycles uint64
	WaitStats
}

// Pacer hands out recording buffers from a Ring so that at most SlotCount
// frames are ever in flight. It must be driven from a single goroutine that
// acquires, records and submits each frame in order.
type Pacer struct {
	device  *DeviceContext
	ring    *Ring
	timeout time.Duration

	frameIndex uint64
	recycles   uint64
}

// NewPacer creates a pacer over a fresh ring of size slots. A timeout of 0
// selects NoTimeout.
func NewPacer(device *DeviceContext, slots int, timeout time.Duration) (*Pacer, error) {
	ring, err := NewRing(device, slots)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = NoTimeout
	}

	return &Pacer{
		device:  device,
		ring:    ring,
		timeout: timeout,
	}, nil
}

func (p *Pacer) SlotCount() int {
	return p.ring.SlotCount()
}

// FrameIndex is the index the next acquired frame will get.
func (p *Pacer) FrameIndex() uint64 {
	return p.frameIndex
}

// AcquireNextRecordingBuffer returns the buffer for the next frame, open for
// recording. If the slot it lives in may still be executing, it first waits
// until the frame that last used the slot has retired on the timeline. The
// frame that last used the slot must have been submitted.
func (p *Pacer) AcquireNextRecordingBuffer() (Frame, error) {
	n := uint64(p.ring.SlotCount())
	slot := int(p.frameIndex % n)

	if p.frameIndex >= n {
		target := p.frameIndex - n + 1
		if target > p.device.LastSubmitted() {
			return Frame{}, invalidStatef("frame %d: slot %d still holds unsubmitted frame %d",
				p.frameIndex, slot, target-1)
		}

		err := p.device.WaitUntil(target, p.timeout)
		if err != nil {
			return Frame{}, errors.Wrapf(err, "frame %d: recycle slot %d", p.frameIndex, slot)
		}

		err = p.ring.Reset(slot)
		if err != nil {
			return Frame{}, errors.Wrapf(err, "frame %d: reset slot %d", p.frameIndex, slot)
		}
		p.recycles++
	}

	err := p.ring.Begin(slot)
	if err != nil {
		return Frame{}, errors.Wrapf(err, "frame %d: begin slot %d", p.frameIndex, slot)
	}

	buffer, err := p.ring.RecordingBuffer(slot)
	if err != nil {
		return Frame{}, err
	}

	frame := Frame{
		Index:  p.frameIndex,
		Slot:   slot,
		Buffer: buffer,
		Target: p.frameIndex + 1,
	}
	p.frameIndex++

	return frame, nil
}

// finish closes the frame's buffer ahead of submission.
func (p *Pacer) finish(frame Frame) error {
	if frame.Buffer == nil || frame.Index >= p.frameIndex {
		return invalidStatef("frame %d was never acquired", frame.Index)
	}
	n := uint64(p.ring.SlotCount())
	if frame.Index+n < p.frameIndex {
		return invalidStatef("frame %d is stale: slot %d was recycled", frame.Index, frame.Slot)
	}
	if frame.Slot != int(frame.Index%n) {
		return invalidStatef("frame %d does not belong to slot %d", frame.Index, frame.Slot)
	}
	return p.ring.End(frame.Slot)
}

func (p *Pacer) Stats() PacerStats {
	return PacerStats{
		Frames:    p.frameIndex,
		Recycles:  p.recycles,
		WaitStats: p.device.Stats(),
	}
}

// Destroy releases the ring. The device must be idle.
func (p *Pacer) Destroy() {
	p.ring.Destroy()
}
