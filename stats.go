// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import (
	"sync"
	"time"
)

// ShortStats is the always-fresh, cheap-to-read summary of a batch's
// progress.
type ShortStats struct {
	Completed int
	Failed    int
	InBytes   int64
	OutBytes  int64
}

// Stats is the full detailed statistics struct, computed on demand. All
// derived fields are computed under the same lock the workers update the
// counters under, so a Stats value is always a consistent snapshot.
type Stats struct {
	TotalItems int
	Completed  int
	Failed     int
	InProgress int
	InBytes    int64
	OutBytes   int64

	StartWallTime time.Time
	LastEmission  time.Time

	// Derived.
	BytesPerSecond       float64
	ItemsPerSecondX100   int64
	CompressionRatioX100 int64
	EstimatedRemaining   time.Duration
}

// statsState is the Coordinator-owned mutable statistics block. Every
// counter is written only under mu; workers completing jobs and readers
// asking for a snapshot take the same lock.
type statsState struct {
	mu sync.Mutex

	totalItems int
	completed  int
	failed     int
	inProgress int
	inBytes    int64
	outBytes   int64

	startWallTime time.Time
	lastEmission  time.Time
}

func (s *statsState) reset(totalItems int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalItems = totalItems
	s.completed = 0
	s.failed = 0
	s.inProgress = 0
	s.inBytes = 0
	s.outBytes = 0
	s.startWallTime = now
	s.lastEmission = now
}

func (s *statsState) addTotal(n int) {
	s.mu.Lock()
	s.totalItems += n
	s.mu.Unlock()
}

// addOutBytes credits output bytes produced outside the per-job
// accounting path, e.g. the solid encoder's single pack stream.
func (s *statsState) addOutBytes(n int64, now time.Time) {
	s.mu.Lock()
	s.outBytes += n
	s.lastEmission = now
	s.mu.Unlock()
}

func (s *statsState) jobStarted() {
	s.mu.Lock()
	s.inProgress++
	s.mu.Unlock()
}

func (s *statsState) jobFinished(ok bool, in, out int64, now time.Time) {
	s.mu.Lock()
	s.inProgress--
	if ok {
		s.completed++
	} else {
		s.failed++
	}
	s.inBytes += in
	s.outBytes += out
	s.lastEmission = now
	s.mu.Unlock()
}

func (s *statsState) short() ShortStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ShortStats{
		Completed: s.completed,
		Failed:    s.failed,
		InBytes:   s.inBytes,
		OutBytes:  s.outBytes,
	}
}

func (s *statsState) detailed(now time.Time) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		TotalItems:    s.totalItems,
		Completed:     s.completed,
		Failed:        s.failed,
		InProgress:    s.inProgress,
		InBytes:       s.inBytes,
		OutBytes:      s.outBytes,
		StartWallTime: s.startWallTime,
		LastEmission:  s.lastEmission,
	}
	elapsed := now.Sub(s.startWallTime).Seconds()
	if elapsed > 0 {
		st.BytesPerSecond = float64(st.OutBytes) / elapsed
		st.ItemsPerSecondX100 = int64(float64(st.Completed+st.Failed) / elapsed * 100)
	}
	if st.InBytes > 0 {
		st.CompressionRatioX100 = int64(float64(st.OutBytes) / float64(st.InBytes) * 100)
	}
	remaining := st.TotalItems - st.Completed - st.Failed
	if st.BytesPerSecond > 0 && remaining > 0 && (st.Completed+st.Failed) > 0 {
		avgBytesPerItem := float64(st.InBytes) / float64(st.Completed+st.Failed)
		remainingSeconds := float64(remaining) * avgBytesPerItem / st.BytesPerSecond
		st.EstimatedRemaining = time.Duration(remainingSeconds * float64(time.Second))
	}
	return st
}

// shouldEmit implements the progress-interval throttle: it reports whether
// a detailed progress callback is due and, when it is, records now as the
// last emission so the next call starts a fresh interval.
func (s *statsState) shouldEmit(now time.Time, intervalMS int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if intervalMS <= 0 {
		s.lastEmission = now
		return true
	}
	if now.Sub(s.lastEmission) >= time.Duration(intervalMS)*time.Millisecond {
		s.lastEmission = now
		return true
	}
	return false
}
