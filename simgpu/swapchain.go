package simgpu

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/timeline-triangle/pacing"
)

// Semaphore is a binary semaphore: signaled once, then consumed by one wait.
type Semaphore struct {
	ch chan struct{}
}

var _ pacing.Semaphore = (*Semaphore)(nil)

func NewSemaphore() *Semaphore {
	return &Semaphore{ch: make(chan struct{}, 1)}
}

func (s *Semaphore) signal() error {
	select {
	case s.ch <- struct{}{}:
		return nil
	default:
		return errors.New("binary semaphore signaled twice without a wait")
	}
}

func (s *Semaphore) wait() {
	<-s.ch
}

func (s *Semaphore) Destroy() {}

// Swapchain hands out presentable images in round-robin order and presents
// them on the device queue.
type Swapchain struct {
	device *Device
	images int
	next   int

	mu        sync.Mutex
	presented []int
}

func NewSwapchain(device *Device, images int) (*Swapchain, error) {
	if images < 1 {
		return nil, errors.Newf("swapchain needs at least one image, got %d", images)
	}
	return &Swapchain{device: device, images: images}, nil
}

func (s *Swapchain) ImageCount() int {
	return s.images
}

// Acquire returns the next image and signals imageAvailable, which the frame's
// submission waits on.
func (s *Swapchain) Acquire(imageAvailable pacing.Semaphore) (int, error) {
	semaphore, ok := imageAvailable.(*Semaphore)
	if !ok {
		return 0, errors.Newf("%T is not a simulated semaphore", imageAvailable)
	}

	image := s.next
	s.next = (s.next + 1) % s.images

	err := semaphore.signal()
	if err != nil {
		return 0, errors.Wrapf(err, "acquire image %d", image)
	}
	return image, nil
}

// Present queues presentation of image once renderComplete is signaled.
func (s *Swapchain) Present(image int, renderComplete pacing.Semaphore) error {
	if image < 0 || image >= s.images {
		return errors.Newf("present: image %d out of range", image)
	}
	semaphore, ok := renderComplete.(*Semaphore)
	if !ok {
		return errors.Newf("%T is not a simulated semaphore", renderComplete)
	}

	err := s.device.enqueue(func() {
		semaphore.wait()
		s.mu.Lock()
		s.presented = append(s.presented, image)
		s.mu.Unlock()
	})
	if err != nil {
		return errors.Wrapf(err, "present image %d", image)
	}
	return nil
}

// Presented lists presented images in presentation order.
func (s *Swapchain) Presented() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.presented...)
}
