// Package vkgpu implements pacing.Driver on a Vulkan 1.2 device: one queue,
// one timeline semaphore, and one command pool per frame slot.
package vkgpu

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_2"
	"github.com/vkngwrapper/timeline-triangle/pacing"
)

// CommandBuffer is a primary Vulkan command buffer. Draw commands are recorded
// through the embedded core1_0.CommandBuffer.
type CommandBuffer struct {
	core1_0.CommandBuffer
}

var _ pacing.CommandBuffer = (*CommandBuffer)(nil)

func (b *CommandBuffer) BeginRecording() error {
	_, err := b.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return err
}

func (b *CommandBuffer) EndRecording() error {
	_, err := b.End()
	return err
}

type CommandPool struct {
	device core1_0.Device
	pool   core1_0.CommandPool
	buffer *CommandBuffer
}

var _ pacing.CommandPool = (*CommandPool)(nil)

func (p *CommandPool) Reset() error {
	_, err := p.pool.Reset(0)
	return err
}

func (p *CommandPool) Buffer() pacing.CommandBuffer {
	return p.buffer
}

func (p *CommandPool) Destroy() {
	p.device.FreeCommandBuffers([]core1_0.CommandBuffer{p.buffer.CommandBuffer})
	p.pool.Destroy(nil)
}

// Semaphore is a binary Vulkan semaphore.
type Semaphore struct {
	handle core1_0.Semaphore
}

var _ pacing.Semaphore = (*Semaphore)(nil)

// Handle returns the native semaphore, for use with swapchain acquire and
// present.
func (s *Semaphore) Handle() core1_0.Semaphore {
	return s.handle
}

func (s *Semaphore) Destroy() {
	s.handle.Destroy(nil)
}

// Driver owns the device timeline semaphore and submits to a single queue.
// The device must have been created with Vulkan 1.2 and the timelineSemaphore
// feature enabled.
type Driver struct {
	device      core1_0.Device
	device12    core1_2.Device
	queue       core1_0.Queue
	queueFamily int
	logger      *slog.Logger

	timeline   core1_0.Semaphore
	timeline12 core1_2.Semaphore
}

var _ pacing.Driver = (*Driver)(nil)

func NewDriver(device core1_0.Device, queue core1_0.Queue, queueFamily int, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	device12 := core1_2.PromoteDevice(device)
	if device12 == nil {
		return nil, errors.New("timeline semaphores need a Vulkan 1.2 device")
	}

	createInfo := core1_0.SemaphoreCreateInfo{}
	createInfo.Next = core1_2.SemaphoreTypeCreateInfo{
		SemaphoreType: core1_2.SemaphoreTypeTimeline,
		InitialValue:  0,
	}
	timeline, _, err := device.CreateSemaphore(nil, createInfo)
	if err != nil {
		return nil, errors.Wrap(err, "create timeline semaphore")
	}

	logger.Debug("created device timeline", "queueFamily", queueFamily)
	return &Driver{
		device:      device,
		device12:    device12,
		queue:       queue,
		queueFamily: queueFamily,
		logger:      logger,
		timeline:    timeline,
		timeline12:  core1_2.PromoteSemaphore(timeline),
	}, nil
}

func (d *Driver) CreateCommandPool() (pacing.CommandPool, error) {
	pool, _, err := d.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: &d.queueFamily,
	})
	if err != nil {
		return nil, err
	}

	buffers, _, err := d.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		pool.Destroy(nil)
		return nil, err
	}

	return &CommandPool{
		device: d.device,
		pool:   pool,
		buffer: &CommandBuffer{CommandBuffer: buffers[0]},
	}, nil
}

func (d *Driver) CreateSemaphore() (pacing.Semaphore, error) {
	semaphore, _, err := d.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, err
	}
	return &Semaphore{handle: semaphore}, nil
}

func (d *Driver) Submit(s pacing.Submission) error {
	info, err := submitInfo(s, d.timeline)
	if err != nil {
		return err
	}

	_, err = d.queue.Submit(nil, []core1_0.SubmitInfo{info})
	return err
}

// submitInfo translates s into a queue submission that also signals timeline
// to s.TimelineValue. Binary semaphores are given a value of 0, which the
// implementation ignores.
func submitInfo(s pacing.Submission, timeline core1_0.Semaphore) (core1_0.SubmitInfo, error) {
	buffer, ok := s.Buffer.(*CommandBuffer)
	if !ok {
		return core1_0.SubmitInfo{}, errors.Newf("submit: %T is not a vulkan command buffer", s.Buffer)
	}

	var info core1_0.SubmitInfo
	var values core1_2.TimelineSemaphoreSubmitInfo

	for _, wait := range s.Waits {
		semaphore, ok := wait.(*Semaphore)
		if !ok {
			return info, errors.Newf("submit: %T is not a vulkan semaphore", wait)
		}
		info.WaitSemaphores = append(info.WaitSemaphores, semaphore.handle)
		info.WaitDstStageMask = append(info.WaitDstStageMask, core1_0.PipelineStageColorAttachmentOutput)
		values.WaitSemaphoreValues = append(values.WaitSemaphoreValues, 0)
	}

	for _, signal := range s.Signals {
		semaphore, ok := signal.(*Semaphore)
		if !ok {
			return info, errors.Newf("submit: %T is not a vulkan semaphore", signal)
		}
		info.SignalSemaphores = append(info.SignalSemaphores, semaphore.handle)
		values.SignalSemaphoreValues = append(values.SignalSemaphoreValues, 0)
	}

	info.SignalSemaphores = append(info.SignalSemaphores, timeline)
	values.SignalSemaphoreValues = append(values.SignalSemaphoreValues, s.TimelineValue)

	info.CommandBuffers = []core1_0.CommandBuffer{buffer.CommandBuffer}
	info.Next = values
	return info, nil
}

func waitTimeout(timeout time.Duration) time.Duration {
	if timeout == pacing.NoTimeout || timeout < 0 {
		return common.NoTimeout
	}
	return timeout
}

func (d *Driver) WaitTimeline(value uint64, timeout time.Duration) (bool, error) {
	res, err := d.device12.WaitSemaphores(waitTimeout(timeout), core1_2.SemaphoreWaitInfo{
		Semaphores: []core1_0.Semaphore{d.timeline},
		Values:     []uint64{value},
	})
	if err != nil {
		return false, err
	}
	return res != core1_0.VKTimeout, nil
}

func (d *Driver) TimelineValue() (uint64, error) {
	value, _, err := d.timeline12.CounterValue()
	return value, err
}

func (d *Driver) WaitIdle() error {
	_, err := d.device.WaitIdle()
	return err
}

// Destroy releases the timeline semaphore. The device itself belongs to the
// caller.
func (d *Driver) Destroy() {
	d.timeline.Destroy(nil)
}
