// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import "github.com/cosnicolaou/p7z/coders"

const (
	// MinWorkerCount is the floor a requested worker count is coerced to.
	MinWorkerCount = 1
	// MaxWorkerCount is the ceiling a requested worker count is coerced to.
	MaxWorkerCount = 256
	// MaxLevel is the ceiling a requested compression level is coerced to.
	MaxLevel = 9
	// MaxItemCount is the per-batch item count ceiling; batches larger than
	// this are rejected with KindInvalidArgument.
	MaxItemCount = 1_000_000
	// MaxSolidSize is the total uncompressed size ceiling for solid
	// mode, 4 GiB.
	MaxSolidSize = 4 << 30
	// DefaultProgressIntervalMS is the default throttle for detailed-stat
	// progress callbacks.
	DefaultProgressIntervalMS = 100
)

// RawKeyMaterial is the reserved alternate encryption-enable path: it is
// only consulted when Config.Password is unset. Password dominates
// whenever both are set.
type RawKeyMaterial struct {
	Key []byte
	IV  []byte
}

// Config holds every tunable of a Coordinator. Zero value is not directly
// usable; construct with NewConfig or build one with Option functions
// passed to NewCoordinator.
type Config struct {
	WorkerCount        int
	Level              int
	MethodID           coders.MethodID
	Password           string
	RawKeyMaterial     RawKeyMaterial
	SolidMode          bool
	SolidBlockSize     int
	VolumeSize         int64
	VolumePrefix       string
	ProgressIntervalMS int
	Verbose            bool
}

// NewConfig returns a Config with every field at its documented default.
func NewConfig() *Config {
	c := &Config{
		WorkerCount:        MinWorkerCount,
		Level:              5,
		MethodID:           coders.LZMA,
		ProgressIntervalMS: DefaultProgressIntervalMS,
	}
	return c
}

// Option configures a Config at construction time: a batch of Options can
// be passed to NewCoordinator instead of calling the individual setters.
type Option func(*Config)

// WithWorkerCount sets the worker pool size; see Config.SetWorkerCount.
func WithWorkerCount(n int) Option { return func(c *Config) { c.SetWorkerCount(n) } }

// WithLevel sets the compression level; see Config.SetLevel.
func WithLevel(l int) Option { return func(c *Config) { c.SetLevel(l) } }

// WithMethodID selects the coder family used for data and header
// compression; see Config.SetMethodID.
func WithMethodID(id coders.MethodID) Option { return func(c *Config) { c.SetMethodID(id) } }

// WithPassword enables encryption of data and the main header; see
// Config.SetPassword.
func WithPassword(pw string) Option { return func(c *Config) { c.SetPassword(pw) } }

// WithRawEncryptionMaterial sets the reserved key/IV path; see
// Config.SetRawEncryptionMaterial.
func WithRawEncryptionMaterial(key, iv []byte) Option {
	return func(c *Config) { c.SetRawEncryptionMaterial(key, iv) }
}

// WithSolidMode enables solid mode; see Config.SetSolidMode.
func WithSolidMode(solid bool) Option { return func(c *Config) { c.SetSolidMode(solid) } }

// WithSolidBlockSize records a number of items per solid block; see
// Config.SetSolidBlockSize.
func WithSolidBlockSize(n int) Option { return func(c *Config) { c.SetSolidBlockSize(n) } }

// WithVolumes enables multi-volume output; see Config.SetVolumes.
func WithVolumes(prefix string, size int64) Option {
	return func(c *Config) { c.SetVolumes(prefix, size) }
}

// WithProgressIntervalMS throttles detailed-stat callbacks; see
// Config.SetProgressIntervalMS.
func WithProgressIntervalMS(ms int) Option {
	return func(c *Config) { c.SetProgressIntervalMS(ms) }
}

// WithVerbose enables trace logging via the standard log package.
func WithVerbose(v bool) Option { return func(c *Config) { c.Verbose = v } }

// SetWorkerCount sets the worker pool size, coerced to [1, 256]. Idempotent;
// safe to call multiple times before a batch starts.
func (c *Config) SetWorkerCount(n int) {
	if n < MinWorkerCount {
		n = MinWorkerCount
	}
	if n > MaxWorkerCount {
		n = MaxWorkerCount
	}
	c.WorkerCount = n
}

// SetLevel sets the compression level, coerced to [0, 9].
func (c *Config) SetLevel(l int) {
	if l < 0 {
		l = 0
	}
	if l > MaxLevel {
		l = MaxLevel
	}
	c.Level = l
}

// SetMethodID selects the coder family used for both data and header
// compression.
func (c *Config) SetMethodID(id coders.MethodID) { c.MethodID = id }

// SetPassword sets the secret used to enable encryption of data and the
// main header. Setting a non-empty password dominates any raw key/IV
// material configured via SetRawEncryptionMaterial.
func (c *Config) SetPassword(pw string) { c.Password = pw }

// SetRawEncryptionMaterial sets the reserved alternate encryption-enable
// path. It is consulted only when no password is set.
func (c *Config) SetRawEncryptionMaterial(key, iv []byte) {
	c.RawKeyMaterial = RawKeyMaterial{Key: key, IV: iv}
}

// EncryptionEnabled reports whether the configuration will cause the
// archive to be encrypted: password set, or (absent a password) raw key
// material set.
func (c *Config) EncryptionEnabled() bool {
	if len(c.Password) > 0 {
		return true
	}
	return len(c.RawKeyMaterial.Key) > 0
}

// SetSolidMode enables or disables solid mode.
func (c *Config) SetSolidMode(solid bool) { c.SolidMode = solid }

// SetSolidBlockSize records the number of items per solid block (0 for
// one block for the entire batch), coercing negative values to 0. The
// solid encoder does not read it: a solid batch is always encoded as a
// single block.
func (c *Config) SetSolidBlockSize(n int) {
	if n < 0 {
		n = 0
	}
	c.SolidBlockSize = n
}

// SetVolumes enables multi-volume output. Both prefix and a positive size
// must be set for splitting to take effect; see Config.VolumesEnabled.
func (c *Config) SetVolumes(prefix string, size int64) {
	c.VolumePrefix = prefix
	c.VolumeSize = size
}

// VolumesEnabled reports whether both a volume size and prefix are set.
func (c *Config) VolumesEnabled() bool {
	return c.VolumeSize > 0 && len(c.VolumePrefix) > 0
}

// SetProgressIntervalMS sets the throttle, in milliseconds, between
// detailed-stat progress callbacks.
func (c *Config) SetProgressIntervalMS(ms int) {
	if ms < 0 {
		ms = 0
	}
	c.ProgressIntervalMS = ms
}

// Clone returns an independent copy of c, so a Coordinator can snapshot
// its configuration at the start of a batch without racing a concurrent
// Configure call.
func (c *Config) Clone() *Config {
	cp := *c
	cp.RawKeyMaterial = RawKeyMaterial{
		Key: append([]byte(nil), c.RawKeyMaterial.Key...),
		IV:  append([]byte(nil), c.RawKeyMaterial.IV...),
	}
	return &cp
}
