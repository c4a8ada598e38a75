// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package client

import (
	"context"
	"sync"

	"github.com/eapache/queue"
	"github.com/pb33f/lasso/frame"
)

// deliveryQueue is an unbounded, thread-safe FIFO of frames. The read
// loop pushes and never blocks, so a slow consumer on one queue cannot
// stall delivery to the others; callers block on Pop until a frame
// arrives, their context fires, or the queue closes.
type deliveryQueue struct {
	mu        sync.Mutex
	items     *queue.Queue
	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newDeliveryQueue() *deliveryQueue {
	return &deliveryQueue{
		items:  queue.New(),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends a frame and wakes one waiter. Pushing to a closed queue
// is a no-op; the frame is dropped because no loop will consume it.
func (q *deliveryQueue) Push(f *frame.Frame) {
	select {
	case <-q.done:
		return
	default:
	}

	q.mu.Lock()
	q.items.Add(f)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop blocks until a frame is available and returns it, preserving
// stream order. It returns ctx.Err() when the context fires and
// ErrListenerClosed once the queue is closed and drained.
func (q *deliveryQueue) Pop(ctx context.Context) (*frame.Frame, error) {
	for {
		if f, ok := q.take(); ok {
			return f, nil
		}

		select {
		case <-q.notify:
			// try again; another waiter may have taken the frame.
		case <-q.done:
			if f, ok := q.take(); ok {
				return f, nil
			}
			return nil, ErrListenerClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// take removes the head frame if one is present. When more frames
// remain it re-arms the notify channel, so a second waiter is not left
// sleeping on a non-empty queue.
func (q *deliveryQueue) take() (*frame.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Length() == 0 {
		return nil, false
	}
	f := q.items.Remove().(*frame.Frame)
	if q.items.Length() > 0 {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return f, true
}

// Len returns the number of frames currently queued.
func (q *deliveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Close wakes every blocked waiter. Frames already queued can still be
// popped; once drained, Pop returns ErrListenerClosed.
func (q *deliveryQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
