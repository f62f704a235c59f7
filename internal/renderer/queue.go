// Package renderer implements the real-time audio render path of spec
// §4.4: a single-producer single-consumer buffer queue feeding the
// hardware callback contract (copy, zero-fill-on-underrun, effect
// chain, EQ, repair, spectrum tap, raw tap).
package renderer

import (
	"sync"

	"github.com/loomaudio/streamcore/internal/models"
)

// queueEntry pairs a buffer with how many of its frames have already
// been consumed by the render callback.
type queueEntry struct {
	buf    *models.AudioBuffer
	offset int // frames already consumed
}

// Queue is the bounded single-producer (decode activity) single-
// consumer (hardware callback) ordered buffer list of spec §4.4. Its
// mutex's critical section is limited to slice head/tail edits and
// pointer arithmetic, never sample-level work, per the spec's
// real-time constraint on the render callback.
type Queue struct {
	mu       sync.Mutex
	entries  []queueEntry
	capacity int
}

// NewQueue constructs a Queue bounded at capacity buffers (spec §4.4:
// "Max queued buffers ≈ 200 for backpressure signalling").
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 200
	}
	return &Queue{capacity: capacity}
}

// Enqueue appends buf to the tail. Returns false if the queue is at
// capacity (backpressure signal to the decode activity).
func (q *Queue) Enqueue(buf *models.AudioBuffer) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.capacity {
		return false
	}
	q.entries = append(q.entries, queueEntry{buf: buf})
	return true
}

// Len reports the number of buffers currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Flush drops every queued buffer, per `flush_queue()`'s seek contract:
// the consumer resumes from silence until new buffers arrive.
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}

// fillFrom copies up to wantFrames frames (across channels) from the
// queue head(s) into out, advancing/discarding consumed entries, and
// returns how many frames were filled. Holds the mutex only for the
// head-pointer bookkeeping; the actual copy runs outside the lock on a
// snapshot reference, since models.AudioBuffer.Samples is never mutated
// concurrently by the producer once enqueued.
func (q *Queue) fillFrom(out []float32, wantFrames, channels int) int {
	filled := 0
	for filled < wantFrames {
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.mu.Unlock()
			break
		}
		head := &q.entries[0]
		buf := head.buf
		offset := head.offset
		framesAvail := buf.FrameCount - offset
		take := wantFrames - filled
		if take > framesAvail {
			take = framesAvail
		}

		if take == framesAvail {
			q.entries = q.entries[1:]
		} else {
			head.offset += take
		}
		q.mu.Unlock()

		srcStart := offset * channels
		dstStart := filled * channels
		copy(out[dstStart:dstStart+take*channels], buf.Samples[srcStart:srcStart+take*channels])
		filled += take
	}
	return filled
}
