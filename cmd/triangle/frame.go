package main

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/timeline-triangle/pacing"
)

// errSwapchainOutOfDate means the presentation target must be rebuilt before
// the next frame.
var errSwapchainOutOfDate = errors.New("swapchain out of date")

// frameTarget is where frames are recorded and presented: the window's
// swapchain, or the simulated one in headless mode.
type frameTarget interface {
	// Acquire returns the next image and arranges for imageAvailable to be
	// signaled once it may be rendered to.
	Acquire(imageAvailable pacing.Semaphore) (int, error)
	Record(frame pacing.Frame, image int) error
	Present(image int, renderComplete pacing.Semaphore) error
}

// renderFrame runs one acquire, record, submit and present cycle.
// imageAvailable holds one semaphore per ring slot.
func renderFrame(pacer *pacing.Pacer, sequencer *pacing.Sequencer, imageAvailable []pacing.Semaphore, target frameTarget) error {
	frame, err := pacer.AcquireNextRecordingBuffer()
	if err != nil {
		return err
	}

	image, err := target.Acquire(imageAvailable[frame.Slot])
	if errors.Is(err, errSwapchainOutOfDate) {
		// Retire the frame empty so the timeline stays contiguous.
		_, submitErr := sequencer.Submit(frame, nil)
		if submitErr != nil {
			return submitErr
		}
		return err
	} else if err != nil {
		return err
	}

	err = target.Record(frame, image)
	if err != nil {
		return errors.Wrapf(err, "record frame %d", frame.Index)
	}

	renderComplete, err := sequencer.Submit(frame, imageAvailable[frame.Slot])
	if err != nil {
		return err
	}

	return target.Present(image, renderComplete)
}

func createImageAvailable(device *pacing.DeviceContext, count int) ([]pacing.Semaphore, error) {
	var semaphores []pacing.Semaphore
	for i := 0; i < count; i++ {
		semaphore, err := device.CreateSemaphore()
		if err != nil {
			destroySemaphores(semaphores)
			return nil, err
		}
		semaphores = append(semaphores, semaphore)
	}
	return semaphores, nil
}

func destroySemaphores(semaphores []pacing.Semaphore) {
	for _, semaphore := range semaphores {
		semaphore.Destroy()
	}
}
