// Package pacing lets the CPU reuse a fixed ring of command pools across frames
// while the GPU executes earlier frames.
//
// A frame goes through three steps on a single goroutine:
//
//	frame, err := pacer.AcquireNextRecordingBuffer() // may block on the timeline
//	... record commands into frame.Buffer ...
//	renderComplete, err := sequencer.Submit(frame, imageAvailable)
//
// Frame i uses slot i mod N. Before a slot is reused the pacer waits until the
// device timeline reaches i-N+1, the value signaled by the frame that last
// recorded into that slot, so at most N frames are ever in flight.
package pacing
