package pacing

import (
	"github.com/cockroachdb/errors"
)

// Sequencer submits paced frames. Each submission waits on the presentation
// engine's image-available semaphore, signals the timeline at the frame's
// target value, and signals a per-frame render-complete semaphore that the
// presentation engine waits on before presenting.
type Sequencer struct {
	device *DeviceContext
	pacer  *Pacer

	renderComplete []Semaphore
}

func NewSequencer(device *DeviceContext, pacer *Pacer) (*Sequencer, error) {
	seq := &Sequencer{
		device: device,
		pacer:  pacer,
	}

	for i := 0; i < pacer.SlotCount(); i++ {
		semaphore, err := device.CreateSemaphore()
		if err != nil {
			seq.Destroy()
			return nil, errors.Wrapf(err, "render-complete semaphore %d", i)
		}
		seq.renderComplete = append(seq.renderComplete, semaphore)
	}

	return seq, nil
}

// Submit ends recording of frame and submits it. imageAvailable may be nil when
// nothing is presented. The returned semaphore is signaled once the frame's
// work has completed.
func (s *Sequencer) Submit(frame Frame, imageAvailable Semaphore) (Semaphore, error) {
	if frame.Target != s.device.LastSubmitted()+1 {
		return nil, invalidStatef("frame %d submitted out of order: target %d, last submitted %d",
			frame.Index, frame.Target, s.device.LastSubmitted())
	}

	err := s.pacer.finish(frame)
	if err != nil {
		return nil, err
	}

	var waits []Semaphore
	if imageAvailable != nil {
		waits = append(waits, imageAvailable)
	}
	renderComplete := s.renderComplete[frame.Index%uint64(len(s.renderComplete))]

	err = s.device.Submit(frame.Buffer, waits, []Semaphore{renderComplete}, frame.Target)
	if err != nil {
		return nil, errors.Wrapf(err, "frame %d", frame.Index)
	}

	return renderComplete, nil
}

func (s *Sequencer) Destroy() {
	for _, semaphore := range s.renderComplete {
		semaphore.Destroy()
	}
	s.renderComplete = nil
}
