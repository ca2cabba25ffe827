package simgpu

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/timeline-triangle/pacing"
)

type bufferState int

const (
	bufferInitial bufferState = iota
	bufferRecording
	bufferExecutable
)

// Command is one recorded GPU command.
type Command struct {
	Op            string
	ClearColor    mgl32.Vec4
	VertexCount   int
	InstanceCount int
}

// CommandBuffer records commands on the CPU; the queue goroutine reads them
// back when the submission executes.
type CommandBuffer struct {
	pool     *CommandPool
	state    bufferState
	commands []Command
}

var _ pacing.CommandBuffer = (*CommandBuffer)(nil)

// BeginRecording requires a buffer in its initial state: freshly allocated, or
// released by a pool reset.
func (b *CommandBuffer) BeginRecording() error {
	if b.state != bufferInitial {
		return errors.New("begin recording: buffer is not in the initial state")
	}
	b.state = bufferRecording
	return nil
}

func (b *CommandBuffer) EndRecording() error {
	if b.state != bufferRecording {
		return errors.New("end recording: buffer is not recording")
	}
	b.state = bufferExecutable
	return nil
}

func (b *CommandBuffer) CmdClear(color mgl32.Vec4) {
	b.record(Command{Op: "clear", ClearColor: color})
}

func (b *CommandBuffer) CmdDraw(vertexCount, instanceCount int) {
	b.record(Command{Op: "draw", VertexCount: vertexCount, InstanceCount: instanceCount})
}

func (b *CommandBuffer) record(command Command) {
	if b.state != bufferRecording {
		b.pool.device.fault(errors.Newf("%s recorded outside of a recording buffer", command.Op))
		return
	}
	b.commands = append(b.commands, command)
}

// Commands returns what was recorded since the last reset.
func (b *CommandBuffer) Commands() []Command {
	return b.commands
}

// CommandPool owns one primary CommandBuffer.
type CommandPool struct {
	device *Device
	buffer *CommandBuffer
	// executing counts submissions of the buffer that have not retired yet.
	executing atomic.Int32
	resets    int
}

var _ pacing.CommandPool = (*CommandPool)(nil)

// Reset releases the buffer's commands. Resetting a pool whose buffer is still
// executing is a device fault.
func (p *CommandPool) Reset() error {
	if p.executing.Load() > 0 {
		err := errors.New("command pool reset while its buffer is executing")
		p.device.fault(err)
		return err
	}
	p.buffer.commands = p.buffer.commands[:0]
	p.buffer.state = bufferInitial
	p.resets++
	return nil
}

func (p *CommandPool) Buffer() pacing.CommandBuffer {
	return p.buffer
}

// Resets counts successful resets.
func (p *CommandPool) Resets() int {
	return p.resets
}

func (p *CommandPool) Destroy() {}
