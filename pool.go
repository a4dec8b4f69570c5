// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/cosnicolaou/p7z/coders"
	"github.com/cosnicolaou/p7z/internal/crcio"
)

// workerPool is a fixed set of persistent worker goroutines draining a
// shared job cursor. There is one jobTable per batch and workers race to
// bump a single atomic index rather than pulling from per-worker queues,
// so jobs are claimed in index order regardless of which worker frees up
// first, with no work-stealing to arbitrate.
type workerPool struct {
	count   int
	startCh chan *batchRun
	stopCh  chan struct{}
	spawned bool
	mu      sync.Mutex
}

func newWorkerPool(count int) *workerPool {
	return &workerPool{
		count:   count,
		startCh: make(chan *batchRun),
		stopCh:  make(chan struct{}),
	}
}

// ensureSpawned lazily starts count persistent worker goroutines the first
// time a batch runs. Workers stay alive across subsequent batches and are
// only told to exit when the pool is stopped.
func (p *workerPool) ensureSpawned() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spawned {
		return
	}
	p.spawned = true
	for i := 0; i < p.count; i++ {
		go p.loop()
	}
}

// stop tells every worker to exit; called only on Coordinator destruction.
func (p *workerPool) stop() {
	close(p.stopCh)
}

func (p *workerPool) loop() {
	for {
		select {
		case b, ok := <-p.startCh:
			if !ok {
				return
			}
			p.drain(b)
		case <-p.stopCh:
			return
		}
	}
}

// drain claims jobs from b's shared cursor until none remain, running each
// to completion, then signals this worker's share of b.wg.
func (p *workerPool) drain(b *batchRun) {
	defer b.wg.Done()
	for {
		idx := int(atomic.AddInt64(&b.cursor, 1)) - 1
		if idx >= b.table.len() {
			return
		}
		j := b.table.at(idx)
		b.runJob(j)
	}
}

// release hands batch b to every worker, one start token each, and blocks
// until all workers have drained the job table.
func (p *workerPool) release(b *batchRun) {
	b.wg.Add(p.count)
	for i := 0; i < p.count; i++ {
		p.startCh <- b
	}
	b.wg.Wait()
}

// batchRun is the per-batch state shared by every worker: the job table,
// the shared claim cursor, and the hooks a worker calls on job
// completion (stats update, progress callback, cancellation check).
type batchRun struct {
	table  *jobTable
	cursor int64
	wg     sync.WaitGroup

	registry *coders.Registry
	level    int
	methodID coders.MethodID

	stats              *statsState
	cb                 Callback
	progressIntervalMS int
	cancelled          int32 // set once ShouldCancel has returned true
}

// runJob processes one claimed job: build a fresh coder, wrap the input
// in a CRC stream, run the coder, capture its property prelude, and
// record the outcome on the job. Per-job failures never propagate out of
// the worker; they rest in job.status/job.err.
func (b *batchRun) runJob(j *job) {
	b.stats.jobStarted()
	b.cb.OnItemStart(j.index, j.item.Name)

	if atomic.LoadInt32(&b.cancelled) == 1 || b.cb.ShouldCancel() {
		atomic.StoreInt32(&b.cancelled, 1)
		j.status = JobCancelled
		j.completed = true
		b.stats.jobFinished(false, 0, 0, nowFunc())
		b.cb.OnItemComplete(j.index, j.status, 0, 0)
		return
	}

	coder, err := b.registry.New(b.methodID, b.level)
	if err != nil {
		b.failJob(j, wrapErr(KindCoder, err, "no coder for method id %#x", uint64(b.methodID)))
		return
	}
	coder.SetProperties([]coders.Property{{ID: coders.PropLevel, Value: int64(b.level)}})

	rc, err := j.item.Open()
	if err != nil {
		b.failJob(j, wrapErr(KindIO, err, "opening item %d", j.index))
		return
	}
	defer rc.Close()

	crcRd := crcio.New(rc)
	var sink bytes.Buffer

	declared := int64(-1)
	if j.item.DeclaredSize > 0 {
		declared = j.item.DeclaredSize
	}

	// Mid-coding progress is throttled to the configured interval;
	// the unconditional OnItemProgress below still fires at completion.
	progress := func(in, out int64) {
		if b.stats.shouldEmit(nowFunc(), b.progressIntervalMS) {
			b.cb.OnItemProgress(j.index, in, out)
		}
	}

	if err := coder.Code(&sink, crcRd, declared, progress); err != nil {
		b.failJob(j, wrapErr(KindCoder, err, "coding item %d", j.index))
		return
	}

	var propsBuf bytes.Buffer
	if err := coder.SerializeProperties(&propsBuf); err != nil {
		b.failJob(j, wrapErr(KindCoder, err, "serializing properties for item %d", j.index))
		return
	}

	j.compressed = sink.Bytes()
	j.uncompressedSize = crcRd.BytesSeen()
	j.crc = crcRd.Sum()
	j.coderProperties = propsBuf.Bytes()
	j.status = JobOK
	j.completed = true

	now := nowFunc()
	b.stats.jobFinished(true, j.uncompressedSize, int64(len(j.compressed)), now)
	b.cb.OnItemProgress(j.index, j.uncompressedSize, int64(len(j.compressed)))
	b.cb.OnItemComplete(j.index, j.status, j.uncompressedSize, int64(len(j.compressed)))
}

func (b *batchRun) failJob(j *job, e *Error) {
	j.status = JobFailed
	j.err = e
	j.completed = true
	now := nowFunc()
	b.stats.jobFinished(false, 0, 0, now)
	b.cb.OnError(j.index, e.Kind, e.Msg)
	b.cb.OnItemComplete(j.index, j.status, 0, 0)
}
