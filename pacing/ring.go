package pacing

type slotState int

const (
	slotIdle slotState = iota
	slotRecording
	slotExecutable
)

func (s slotState) String() string {
	switch s {
	case slotIdle:
		return "idle"
	case slotRecording:
		return "recording"
	case slotExecutable:
		return "executable"
	}
	return "unknown"
}

type slot struct {
	pool  CommandPool
	state slotState
}

// Ring is a fixed set of recording slots, each a resettable command pool with
// one primary buffer. The ring performs no synchronization: callers must only
// reset a slot once the GPU has finished with it.
type Ring struct {
	slots []slot
}

// NewRing allocates count slots from device. If any allocation fails, the slots
// already created are destroyed.
func NewRing(device *DeviceContext, count int) (*Ring, error) {
	if count < 1 {
		return nil, invalidStatef("ring size must be at least 1, got %d", count)
	}

	ring := &Ring{}
	for i := 0; i < count; i++ {
		pool, err := device.CreateCommandPool()
		if err != nil {
			ring.Destroy()
			return nil, resourceErrorf(err, "allocate recording slot %d of %d", i, count)
		}
		ring.slots = append(ring.slots, slot{pool: pool})
	}

	return ring, nil
}

func (r *Ring) SlotCount() int {
	return len(r.slots)
}

func (r *Ring) slot(index int) (*slot, error) {
	if index < 0 || index >= len(r.slots) {
		return nil, invalidStatef("slot %d out of range [0, %d)", index, len(r.slots))
	}
	return &r.slots[index], nil
}

// Reset releases every command previously recorded into the slot. A slot that
// is still recording cannot be reset.
func (r *Ring) Reset(index int) error {
	s, err := r.slot(index)
	if err != nil {
		return err
	}
	if s.state == slotRecording {
		return invalidStatef("slot %d: reset while recording", index)
	}

	err = s.pool.Reset()
	if err != nil {
		return err
	}
	s.state = slotIdle
	return nil
}

// RecordingBuffer returns the single buffer owned by the slot.
func (r *Ring) RecordingBuffer(index int) (CommandBuffer, error) {
	s, err := r.slot(index)
	if err != nil {
		return nil, err
	}
	return s.pool.Buffer(), nil
}

// Begin opens the slot's buffer for recording.
func (r *Ring) Begin(index int) error {
	s, err := r.slot(index)
	if err != nil {
		return err
	}
	if s.state == slotRecording {
		return invalidStatef("slot %d: recording begun twice", index)
	}

	err = s.pool.Buffer().BeginRecording()
	if err != nil {
		return err
	}
	s.state = slotRecording
	return nil
}

// End closes the slot's buffer, making it ready for submission.
func (r *Ring) End(index int) error {
	s, err := r.slot(index)
	if err != nil {
		return err
	}
	if s.state != slotRecording {
		return invalidStatef("slot %d: end recording while %s", index, s.state)
	}

	err = s.pool.Buffer().EndRecording()
	if err != nil {
		return err
	}
	s.state = slotExecutable
	return nil
}

func (r *Ring) Destroy() {
	for _, s := range r.slots {
		s.pool.Destroy()
	}
	r.slots = nil
}
