// Package session drives the capture/transcribe loop: a producer reading
// frames from an audio source and a consumer running segmentation and
// dispatch, joined by an unbounded frame queue.
package session

import (
	"context"
	"sync"

	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/pkg/audio"
)

// FrameQueue is an unbounded FIFO of audio frames, safe for one producer and
// one consumer. Push never blocks, so a slow consumer can never stall frame
// capture; Pop blocks until a frame arrives or the queue is closed and fully
// drained.
type FrameQueue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	frames   []audio.Frame
	closed   bool
	metrics  *observe.Metrics
}

// NewFrameQueue creates an empty open queue.
func NewFrameQueue() *FrameQueue {
	q := &FrameQueue{metrics: observe.DefaultMetrics()}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends a frame to the tail. It reports false, dropping the frame,
// when the queue has been closed.
func (q *FrameQueue) Push(f audio.Frame) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.frames = append(q.frames, f)
	q.mu.Unlock()

	q.metrics.QueueDepth.Add(context.Background(), 1)
	q.nonEmpty.Signal()
	return true
}

// Pop removes and returns the head frame, blocking while the queue is open
// and empty. It reports false once the queue is closed and every queued frame
// has been delivered; frames pushed before Close are never lost.
func (q *FrameQueue) Pop() (audio.Frame, bool) {
	q.mu.Lock()
	for len(q.frames) == 0 && !q.closed {
		q.nonEmpty.Wait()
	}
	if len(q.frames) == 0 {
		q.mu.Unlock()
		return audio.Frame{}, false
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	q.mu.Unlock()

	q.metrics.QueueDepth.Add(context.Background(), -1)
	return f, true
}

// Close marks the queue closed and wakes any blocked Pop. Frames still queued
// remain poppable; further pushes are rejected. Safe to call more than once.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.nonEmpty.Broadcast()
}

// Len returns the number of frames currently queued.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
