package domain

import "time"

// Job is one queued unit of work: process a single file. Attempt is the
// 1-based delivery count reported by the queue, carried explicitly so the
// worker's attempt-cap decision is testable without a live queue.
type Job struct {
	FileID     string
	Attempt    int
	EnqueuedAt time.Time
}
