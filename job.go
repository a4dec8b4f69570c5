// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import "sync"

// JobStatus is the terminal state of a job.
type JobStatus int

const (
	// JobPending indicates the job has not yet been claimed by a worker.
	JobPending JobStatus = iota
	// JobOK indicates the job completed successfully.
	JobOK
	// JobFailed indicates the coder or input reported an error; the
	// error itself is on job.err.
	JobFailed
	// JobCancelled indicates the job was never claimed before the batch
	// was cancelled.
	JobCancelled
)

func (s JobStatus) String() string {
	switch s {
	case JobOK:
		return "ok"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// job is one unit of work: one input item plus the result slots written
// exactly once, by the single worker that claims the job off the shared
// cursor. After completed is true the job is read-only and requires no
// further synchronization beyond the release the worker pool already
// provides when the batch drains.
type job struct {
	index   int
	item    InputItem
	userTag int

	// Result slots, written once by the claiming worker.
	compressed       []byte
	uncompressedSize int64
	crc              uint32
	coderProperties  []byte
	status           JobStatus
	err              error
	completed        bool
}

// jobTable is the batch's jobs vector: append-only before workers are
// released, after which only the shared claim cursor and each job's own
// result slots (exclusive to its claiming worker) are written.
type jobTable struct {
	mu   sync.Mutex
	jobs []*job
}

func newJobTable(items []InputItem) *jobTable {
	jobs := make([]*job, len(items))
	for i := range items {
		jobs[i] = &job{index: i, item: items[i], userTag: i}
	}
	return &jobTable{jobs: jobs}
}

func (t *jobTable) append(item InputItem) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := len(t.jobs)
	t.jobs = append(t.jobs, &job{index: idx, item: item, userTag: idx})
	return idx
}

func (t *jobTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

func (t *jobTable) at(i int) *job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobs[i]
}
