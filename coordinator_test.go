// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"

	"github.com/cosnicolaou/p7z"
	"github.com/cosnicolaou/p7z/coders"
	"github.com/cosnicolaou/p7z/inputs"
)

func ExampleCoordinator_CompressBatch() {
	c := p7z.NewCoordinator(p7z.WithWorkerCount(2), p7z.WithMethodID(coders.Store))
	defer c.Close()

	items := []p7z.InputItem{
		inputs.FromBytes("a.txt", []byte("hello")),
		inputs.FromBytes("b.txt", []byte("world")),
	}
	var out bytes.Buffer
	outcome, err := c.CompressBatch(context.Background(), items, &out, nil)
	if err != nil {
		panic(err)
	}
	stats := c.ShortStats()
	fmt.Printf("outcome=%v completed=%d failed=%d\n", outcome, stats.Completed, stats.Failed)
	fmt.Printf("signature=% x\n", out.Bytes()[:6])
	// Output:
	// outcome=ok completed=2 failed=0
	// signature=37 7a bc af 27 1c
}

func streamA() []byte {
	b := make([]byte, 1<<20)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func streamB() []byte {
	return bytes.Repeat([]byte("Hello, world.\n"), 100)
}

// Scenario 1: two-stream non-solid, LZMA level 5, no encryption.
func TestTwoStreamNonSolidLZMA(t *testing.T) {
	c := p7z.NewCoordinator(p7z.WithWorkerCount(2), p7z.WithLevel(5), p7z.WithMethodID(coders.LZMA))
	defer c.Close()

	a, b := streamA(), streamB()
	items := []p7z.InputItem{
		inputs.FromBytes("stream-A", a),
		inputs.FromBytes("stream-B", b),
	}
	var out bytes.Buffer
	outcome, err := c.CompressBatch(context.Background(), items, &out, nil)
	if err != nil {
		t.Fatalf("CompressBatch: %v", err)
	}
	if outcome != p7z.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", outcome)
	}
	got := out.Bytes()
	want := []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C, 0x00, 0x04}
	if !bytes.Equal(got[:8], want) {
		t.Errorf("archive header = % x, want % x", got[:8], want)
	}
	stats := c.ShortStats()
	if stats.Completed != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 2 completed, 0 failed", stats)
	}
}

// Scenario 2: three-stream encrypted, password "pw1".
func TestThreeStreamEncrypted(t *testing.T) {
	c := p7z.NewCoordinator(p7z.WithWorkerCount(3), p7z.WithLevel(1), p7z.WithPassword("pw1"))
	defer c.Close()

	items := []p7z.InputItem{
		inputs.FromBytes("file-A", bytes.Repeat([]byte{0x41}, 1024)),
		inputs.FromBytes("file-B", bytes.Repeat([]byte{0x42}, 1024)),
		inputs.FromBytes("file-C", bytes.Repeat([]byte{0x43}, 1024)),
	}
	var out bytes.Buffer
	outcome, err := c.CompressBatch(context.Background(), items, &out, nil)
	if err != nil {
		t.Fatalf("CompressBatch: %v", err)
	}
	if outcome != p7z.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", outcome)
	}
	got := out.Bytes()
	for _, run := range [][]byte{
		bytes.Repeat([]byte{0x41}, 16),
		bytes.Repeat([]byte{0x42}, 16),
		bytes.Repeat([]byte{0x43}, 16),
	} {
		if bytes.Contains(got[32:], run) {
			t.Errorf("encrypted archive contains a plaintext run %x", run)
		}
	}
	if bytes.Contains(got[32:], []byte("file-B")) {
		t.Errorf("encrypted archive leaks a plaintext file name past the signature")
	}
}

// Scenario 3: solid mode, five similarly-structured inputs.
func TestSolidModeFiveInputs(t *testing.T) {
	c := p7z.NewCoordinator(p7z.WithWorkerCount(4), p7z.WithLevel(3), p7z.WithSolidMode(true))
	defer c.Close()

	payload := bytes.Repeat([]byte("solid-mode-sample-data "), 200*1024/23)
	var solidItems, singleItems []p7z.InputItem
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("item-%d", i)
		solidItems = append(solidItems, inputs.FromBytes(name, payload))
	}
	singleItems = append(singleItems, inputs.FromBytes("item-0", payload))

	var solidOut bytes.Buffer
	if _, err := c.CompressBatch(context.Background(), solidItems, &solidOut, nil); err != nil {
		t.Fatalf("solid CompressBatch: %v", err)
	}

	single := p7z.NewCoordinator(p7z.WithWorkerCount(1), p7z.WithLevel(3))
	defer single.Close()
	var singleOut bytes.Buffer
	if _, err := single.CompressBatch(context.Background(), singleItems, &singleOut, nil); err != nil {
		t.Fatalf("single CompressBatch: %v", err)
	}

	if solidOut.Len() >= 5*singleOut.Len() {
		t.Errorf("solid archive (%d bytes) not smaller than 5x a single-file archive (%d bytes)", solidOut.Len(), singleOut.Len())
	}
}

// Scenario 4: multi-volume, one 10 MiB input, volume_size = 1 MiB.
func TestMultiVolumeSplitting(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "out.7z")
	c := p7z.NewCoordinator(
		p7z.WithWorkerCount(1),
		p7z.WithLevel(0),
		p7z.WithMethodID(coders.Store),
		p7z.WithVolumes(prefix, 1<<20),
	)
	defer c.Close()

	item := inputs.FromBytes("big", bytes.Repeat([]byte("v"), 10<<20))
	var out bytes.Buffer // unused when volumes are enabled but CompressBatch still requires a non-nil sink
	outcome, err := c.CompressBatch(context.Background(), []p7z.InputItem{item}, &out, nil)
	if err != nil {
		t.Fatalf("CompressBatch: %v", err)
	}
	if outcome != p7z.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", outcome)
	}
	matches, _ := filepath.Glob(prefix + ".*")
	if len(matches) < 4 {
		t.Errorf("found %d volume files, want at least 4", len(matches))
	}
	for _, m := range matches {
		if _, err := os.Stat(m); err != nil {
			t.Errorf("volume file %s missing: %v", m, err)
		}
	}
}

// Scenario 5: cancellation after 10 of 100 items complete.
func TestCancellationMidBatch(t *testing.T) {
	c := p7z.NewCoordinator(p7z.WithWorkerCount(4), p7z.WithLevel(1))
	defer c.Close()

	items := make([]p7z.InputItem, 100)
	for i := range items {
		items[i] = inputs.FromBytes(fmt.Sprintf("item-%d", i), bytes.Repeat([]byte("c"), 512))
	}
	cb := &cancelAfterN{n: 10}
	outcome, err := c.CompressBatch(context.Background(), items, &bytes.Buffer{}, cb)
	if err != nil && outcome != p7z.OutcomeFatal {
		t.Fatalf("CompressBatch: %v", err)
	}
	if outcome != p7z.OutcomePartial && outcome != p7z.OutcomeFatal {
		t.Fatalf("outcome = %v, want Partial or Fatal", outcome)
	}
	stats := c.ShortStats()
	if stats.Completed < 10 {
		t.Errorf("Completed = %d, want >= 10", stats.Completed)
	}
}

type cancelAfterN struct {
	p7z.NoopCallback
	n         int64
	completed int64
}

func (c *cancelAfterN) OnItemComplete(index int, status p7z.JobStatus, in, out int64) {
	if status == p7z.JobOK {
		atomic.AddInt64(&c.completed, 1)
	}
}

func (c *cancelAfterN) ShouldCancel() bool { return atomic.LoadInt64(&c.completed) >= c.n }

// Scenario 6: partial failure, item 7 of 20 fails mid-read.
func TestPartialFailureMidRead(t *testing.T) {
	c := p7z.NewCoordinator(p7z.WithWorkerCount(4), p7z.WithLevel(1))
	defer c.Close()

	items := make([]p7z.InputItem, 20)
	for i := range items {
		if i == 6 { // item 7, 0-indexed
			items[i] = p7z.InputItem{
				Name: "item-6",
				Open: func() (io.ReadCloser, error) {
					return io.NopCloser(io.MultiReader(
						bytes.NewReader(bytes.Repeat([]byte("d"), 128)),
						iotest.ErrReader(errors.New("forced read failure")),
					)), nil
				},
			}
			continue
		}
		items[i] = inputs.FromBytes(fmt.Sprintf("item-%d", i), bytes.Repeat([]byte("d"), 256))
	}
	cb := &recordErrorCallback{lastErrorIndex: -1}
	var out bytes.Buffer
	outcome, err := c.CompressBatch(context.Background(), items, &out, cb)
	if err != nil {
		t.Fatalf("CompressBatch: %v", err)
	}
	if outcome != p7z.OutcomePartial {
		t.Fatalf("outcome = %v, want Partial", outcome)
	}
	stats := c.ShortStats()
	if stats.Completed != 19 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 19 completed, 1 failed", stats)
	}
	if cb.lastErrorIndex != 6 {
		t.Errorf("on_error fired for index %d, want 6", cb.lastErrorIndex)
	}
}

type recordErrorCallback struct {
	p7z.NoopCallback
	lastErrorIndex int
}

func (r *recordErrorCallback) OnError(index int, kind p7z.Kind, msg string) {
	r.lastErrorIndex = index
}

func TestZeroByteInputProducesValidArchive(t *testing.T) {
	c := p7z.NewCoordinator(p7z.WithWorkerCount(1), p7z.WithLevel(1))
	defer c.Close()
	item := inputs.FromBytes("empty", nil)
	var out bytes.Buffer
	outcome, err := c.CompressBatch(context.Background(), []p7z.InputItem{item}, &out, nil)
	if err != nil {
		t.Fatalf("CompressBatch: %v", err)
	}
	if outcome != p7z.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", outcome)
	}
	got := out.Bytes()
	if len(got) <= 32 {
		t.Fatalf("archive is %d bytes, want more than the bare signature header", len(got))
	}
	want := []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C, 0x00, 0x04}
	if !bytes.Equal(got[:8], want) {
		t.Errorf("archive header = % x, want % x", got[:8], want)
	}
}

func TestItemCountCeiling(t *testing.T) {
	c := p7z.NewCoordinator()
	defer c.Close()
	items := make([]p7z.InputItem, p7z.MaxItemCount+1)
	_, err := c.CompressBatch(context.Background(), items, io.Discard, nil)
	if err == nil {
		t.Fatalf("expected an error for a batch over the item-count ceiling")
	}
	var perr *p7z.Error
	if !errors.As(err, &perr) || perr.Kind != p7z.KindInvalidArgument {
		t.Errorf("got %v, want KindInvalidArgument", err)
	}
}

type prefetchCallback struct {
	p7z.NoopCallback
	extra  []p7z.InputItem
	called bool
}

func (p *prefetchCallback) GetNextItems(cursor, maxCount int) ([]p7z.InputItem, bool) {
	if p.called {
		return nil, false
	}
	p.called = true
	n := len(p.extra)
	if n > maxCount {
		n = maxCount
	}
	return p.extra[:n], true
}

func TestLookAheadPrefetchAppendsJobs(t *testing.T) {
	c := p7z.NewCoordinator(p7z.WithWorkerCount(2), p7z.WithLevel(1))
	defer c.Close()

	items := []p7z.InputItem{
		inputs.FromBytes("base-0", bytes.Repeat([]byte("p"), 512)),
		inputs.FromBytes("base-1", bytes.Repeat([]byte("q"), 512)),
	}
	cb := &prefetchCallback{extra: []p7z.InputItem{
		inputs.FromBytes("extra-0", bytes.Repeat([]byte("r"), 512)),
		inputs.FromBytes("extra-1", bytes.Repeat([]byte("s"), 512)),
	}}
	var out bytes.Buffer
	outcome, err := c.CompressBatch(context.Background(), items, &out, cb)
	if err != nil {
		t.Fatalf("CompressBatch: %v", err)
	}
	if outcome != p7z.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", outcome)
	}
	if !cb.called {
		t.Fatalf("GetNextItems was never consulted")
	}
	stats := c.Stats()
	if stats.TotalItems != 4 || stats.Completed != 4 {
		t.Errorf("stats = %+v, want 4 total, 4 completed (prefetched items surface in the same counters)", stats)
	}
}

func TestCompressSingleInlineWhenWorkerCountIsOne(t *testing.T) {
	c := p7z.NewCoordinator(p7z.WithWorkerCount(1), p7z.WithLevel(1))
	defer c.Close()
	item := inputs.FromBytes("solo", bytes.Repeat([]byte("e"), 4096))
	var out bytes.Buffer
	outcome, err := c.CompressSingle(context.Background(), item, &out, nil)
	if err != nil {
		t.Fatalf("CompressSingle: %v", err)
	}
	if outcome != p7z.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", outcome)
	}
	if !strings.HasPrefix(fmt.Sprintf("% x", out.Bytes()[:6]), "37 7a bc af 27 1c") {
		t.Errorf("output does not start with the 7z signature")
	}
}
