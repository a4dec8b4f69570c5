// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import (
	"bytes"
	"context"
	"hash/crc32"
	"io"
	"log"
	"sync"

	"cloudeng.io/errors"

	"github.com/cosnicolaou/p7z/coders"
	"github.com/cosnicolaou/p7z/internal/sevenzip"
	"github.com/cosnicolaou/p7z/internal/volume"
)

// Coordinator is the package's entry point: it owns configuration,
// lazily spawns the worker pool, drives a batch to completion, and
// assembles the resulting 7z archive. A Coordinator is created,
// configured (any order, any number of times), used for one or more
// batches, then destroyed with Close. It drives one batch at a time;
// run multiple Coordinators for concurrent batches.
type Coordinator struct {
	mu       sync.Mutex
	cfg      *Config
	registry *coders.Registry
	stats    *statsState

	poolOnce sync.Once
	pool     *workerPool
}

// NewCoordinator returns a Coordinator configured by opts, layered over
// NewConfig's defaults. AES is pre-registered on the Coordinator's own
// registry since encryption is wired transparently whenever a password is
// configured, regardless of which Option the caller used to set it.
func NewCoordinator(opts ...Option) *Coordinator {
	cfg := NewConfig()
	for _, o := range opts {
		o(cfg)
	}
	reg := coders.NewRegistry()
	reg.RegisterAES()
	return &Coordinator{
		cfg:      cfg,
		registry: reg,
		stats:    &statsState{},
	}
}

// Configure applies opts to the Coordinator's configuration. Safe to call
// between batches; calling during an active batch has undefined effect on
// that batch but never corrupts state, since each batch snapshots the
// configuration up front.
func (c *Coordinator) Configure(opts ...Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range opts {
		o(c.cfg)
	}
}

func (c *Coordinator) snapshotConfig() *Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

func (c *Coordinator) trace(format string, args ...interface{}) {
	if c.snapshotConfig().Verbose {
		log.Printf(format, args...)
	}
}

// ensurePool lazily spawns the worker pool on the first batch and keeps
// it alive across subsequent batches.
func (c *Coordinator) ensurePool() *workerPool {
	c.poolOnce.Do(func() {
		c.pool = newWorkerPool(c.snapshotConfig().WorkerCount)
	})
	c.pool.ensureSpawned()
	return c.pool
}

// Close stops the worker pool. A Coordinator must not be used for further
// batches after Close.
func (c *Coordinator) Close() {
	if c.pool != nil {
		c.pool.stop()
	}
}

// ShortStats returns the always-fresh summary counters for the most
// recent (or in-flight) batch.
func (c *Coordinator) ShortStats() ShortStats { return c.stats.short() }

// Stats returns the full, on-demand detailed statistics, including
// derived throughput figures.
func (c *Coordinator) Stats() Stats { return c.stats.detailed(nowFunc()) }

// CompressSingle compresses one input into out. With a worker count of
// one it runs the coder inline rather than paying for a pool hand-off;
// otherwise it falls through to CompressBatch as a one-item batch.
func (c *Coordinator) CompressSingle(ctx context.Context, item InputItem, out io.Writer, cb Callback) (Outcome, error) {
	cfg := c.snapshotConfig()
	if cb == nil {
		cb = NoopCallback{}
	}
	if cfg.WorkerCount > 1 {
		return c.CompressBatch(ctx, []InputItem{item}, out, cb)
	}
	return c.compressBatchNonSolid(ctx, []InputItem{item}, out, cb, cfg, true)
}

// CompressBatch compresses items into a single archive written to out:
// validate, dispatch to the solid or worker-pool path, assemble, and
// report the batch outcome.
func (c *Coordinator) CompressBatch(ctx context.Context, items []InputItem, out io.Writer, cb Callback) (Outcome, error) {
	if err := validateItems(items); err != nil {
		return OutcomeFatal, err
	}
	if out == nil {
		return OutcomeFatal, newErr(KindInvalidArgument, "output sink must not be nil")
	}
	if cb == nil {
		cb = NoopCallback{}
	}
	cfg := c.snapshotConfig()
	if cfg.SolidMode {
		return c.compressSolidBatch(ctx, items, out, cb, cfg)
	}
	return c.compressBatchNonSolid(ctx, items, out, cb, cfg, false)
}

// compressBatchNonSolid runs the worker-pool path. inline, when true,
// skips spawning the persistent pool and runs every job on the calling
// goroutine instead (CompressSingle's single-worker fast path).
func (c *Coordinator) compressBatchNonSolid(ctx context.Context, items []InputItem, out io.Writer, cb Callback, cfg *Config, inline bool) (Outcome, error) {
	c.stats.reset(len(items), nowFunc())
	table := newJobTable(items)

	if !inline {
		if extra, ok := cb.GetNextItems(table.len(), 2*cfg.WorkerCount); ok && len(extra) > 0 {
			c.stats.addTotal(len(extra))
			for _, it := range extra {
				table.append(it)
			}
			c.trace("p7z: prefetched %d additional items", len(extra))
		}
	}

	run := &batchRun{
		table:              table,
		registry:           c.registry,
		level:              cfg.Level,
		methodID:           cfg.MethodID,
		stats:              c.stats,
		cb:                 cb,
		progressIntervalMS: cfg.ProgressIntervalMS,
	}

	if inline {
		for i := 0; i < table.len(); i++ {
			run.runJob(table.at(i))
		}
	} else {
		c.ensurePool().release(run)
	}

	return c.assembleFromJobs(ctx, table, out, cb, cfg)
}

// assembleFromJobs builds the archive database from table's completed
// jobs and hands it to the assembler: one folder per successful job, in
// job-index order regardless of completion order.
func (c *Coordinator) assembleFromJobs(ctx context.Context, table *jobTable, out io.Writer, cb Callback, cfg *Config) (Outcome, error) {
	total := table.len()
	succeeded := 0
	for i := 0; i < total; i++ {
		if table.at(i).status == JobOK {
			succeeded++
		}
	}
	if succeeded == 0 {
		cb.OnError(-1, KindFatal, "all compression jobs failed")
		return OutcomeFatal, newErr(KindFatal, "all compression jobs failed")
	}

	db := &sevenzip.Database{}
	var packedData [][]byte

	for i := 0; i < total; i++ {
		j := table.at(i)
		if j.status != JobOK {
			continue
		}
		file := sevenzip.FileEntry{
			Name:       j.item.Name,
			Size:       j.uncompressedSize,
			Attrs:      j.item.Attrs,
			AttrsSet:   j.item.Attrs != 0,
			MTime:      j.item.MTime,
			MTimeSet:   j.item.MTime != 0,
			HasStream:  j.uncompressedSize > 0,
			CRC:        j.crc,
			CRCDefined: j.uncompressedSize > 0,
		}
		db.Files = append(db.Files, file)
		if j.uncompressedSize == 0 {
			// Zero-byte items contribute a file entry only; no pack
			// stream, no folder.
			continue
		}

		packBytes, folderCoders, err := c.sealJobBytes(j.compressed, j.coderProperties, cfg)
		if err != nil {
			return OutcomeFatal, err
		}
		packedData = append(packedData, packBytes)
		db.PackSizes = append(db.PackSizes, int64(len(packBytes)))
		db.PackCRCs = append(db.PackCRCs, crc32.ChecksumIEEE(packBytes))
		db.Folders = append(db.Folders, sevenzip.Folder{
			Coders:         folderCoders,
			NumSubStreams:  1,
			SubStreamSizes: []int64{j.uncompressedSize},
			SubStreamCRCs:  []uint32{j.crc},
			UnpackSize:     j.uncompressedSize,
		})
	}

	if err := c.assemble(ctx, db, packedData, out, cfg); err != nil {
		return OutcomeFatal, err
	}

	if succeeded < total {
		return OutcomePartial, nil
	}
	return OutcomeOK, nil
}

// sealJobBytes applies the encryption stage of the method descriptor:
// when the configuration enables encryption, packBytes is re-encrypted
// through a fresh AES instance and the folder's coder chain grows to
// [primary, AES]. Each folder gets its own AES coder instance with its
// own salt and IV; coder instances are never reused across folders.
func (c *Coordinator) sealJobBytes(packBytes, coderProps []byte, cfg *Config) ([]byte, []sevenzip.FolderCoder, error) {
	chain := []sevenzip.FolderCoder{{MethodID: uint64(cfg.MethodID), Properties: coderProps}}
	if !cfg.EncryptionEnabled() {
		return packBytes, chain, nil
	}
	encrypted, aesProps, err := c.encryptWithAES(packBytes, cfg)
	if err != nil {
		return nil, nil, err
	}
	chain = append(chain, sevenzip.FolderCoder{MethodID: uint64(coders.AES256SHA256), Properties: aesProps})
	return encrypted, chain, nil
}

func (c *Coordinator) encryptWithAES(plain []byte, cfg *Config) ([]byte, []byte, error) {
	aesCoder, err := c.registry.New(coders.AES256SHA256, cfg.Level)
	if err != nil {
		return nil, nil, wrapErr(KindCoder, err, "no AES coder registered")
	}
	pc, ok := aesCoder.(coders.PasswordCoder)
	if !ok {
		return nil, nil, newErr(KindCoder, "AES coder does not implement PasswordCoder")
	}
	pc.SetPassword(utf16LEPassword(cfg.Password))
	var sink bytes.Buffer
	if err := pc.Code(&sink, bytes.NewReader(plain), int64(len(plain)), nil); err != nil {
		return nil, nil, wrapErr(KindCoder, err, "encrypting pack stream")
	}
	var props bytes.Buffer
	if err := pc.SerializeProperties(&props); err != nil {
		return nil, nil, wrapErr(KindCoder, err, "serializing AES properties")
	}
	return sink.Bytes(), props.Bytes(), nil
}

// compressSolidBatch runs the solid path, then reuses the same assembly
// as the non-solid path for the single resulting folder.
func (c *Coordinator) compressSolidBatch(ctx context.Context, items []InputItem, out io.Writer, cb Callback, cfg *Config) (Outcome, error) {
	c.stats.reset(len(items), nowFunc())
	packBytes, coderProps, results, err := encodeSolid(items, c.registry, cfg.MethodID, cfg.Level, c.stats, cb)
	if err != nil {
		cb.OnError(-1, KindFatal, err.Error())
		return OutcomeFatal, err
	}
	c.stats.addOutBytes(int64(len(packBytes)), nowFunc())

	packBytes, chain, err := c.sealJobBytes(packBytes, coderProps, cfg)
	if err != nil {
		return OutcomeFatal, err
	}

	// Zero-byte items get a file entry with no stream (solidFolderFiles)
	// and so are not sub-streams of the folder.
	var total int64
	var subSizes []int64
	var subCRCs []uint32
	for _, r := range results {
		if r.uncompressedSize == 0 {
			continue
		}
		subSizes = append(subSizes, r.uncompressedSize)
		subCRCs = append(subCRCs, r.crc)
		total += r.uncompressedSize
	}

	db := &sevenzip.Database{
		PackSizes: []int64{int64(len(packBytes))},
		PackCRCs:  []uint32{crc32.ChecksumIEEE(packBytes)},
		Folders: []sevenzip.Folder{{
			Coders:         chain,
			NumSubStreams:  len(subSizes),
			SubStreamSizes: subSizes,
			SubStreamCRCs:  subCRCs,
			UnpackSize:     total,
		}},
		Files: solidFolderFiles(results),
	}

	if err := c.assemble(ctx, db, [][]byte{packBytes}, out, cfg); err != nil {
		return OutcomeFatal, err
	}
	return OutcomeOK, nil
}

// assemble wraps out in the volume splitter when configured, builds the
// header coder chain (the data coder family at the data level, plus AES
// when encryption is enabled), and invokes the archive assembler.
func (c *Coordinator) assemble(ctx context.Context, db *sevenzip.Database, packedData [][]byte, out io.Writer, cfg *Config) error {
	dest := out
	var vw *volume.Writer
	if cfg.VolumesEnabled() {
		w, err := volume.NewWriter(ctx, cfg.VolumePrefix, cfg.VolumeSize)
		if err != nil {
			return wrapErr(KindIO, err, "creating volume writer")
		}
		vw = w
		dest = w
	}

	headerCoder, err := c.registry.New(cfg.MethodID, cfg.Level)
	if err != nil {
		return wrapErr(KindCoder, err, "no coder for header method id %#x", uint64(cfg.MethodID))
	}
	headerCoder.SetProperties([]coders.Property{{ID: coders.PropLevel, Value: int64(cfg.Level)}})

	hm := sevenzip.HeaderMethod{MethodID: cfg.MethodID, Primary: headerCoder}
	if cfg.EncryptionEnabled() {
		aesCoder, err := c.registry.New(coders.AES256SHA256, cfg.Level)
		if err != nil {
			return wrapErr(KindCoder, err, "no AES coder registered for header encryption")
		}
		pc, ok := aesCoder.(coders.PasswordCoder)
		if !ok {
			return newErr(KindCoder, "AES coder does not implement PasswordCoder")
		}
		hm.AES = pc
		hm.Password = cfg.Password
	}

	assembleErr := sevenzip.Assemble(dest, db, packedData, hm)

	if vw != nil {
		errs := &errors.M{}
		errs.Append(assembleErr)
		errs.Append(vw.Close())
		return errs.Err()
	}
	return assembleErr
}
