// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package coders

import "fmt"

// Factory constructs a fresh Coder instance for one job. A fresh instance
// must be requested per job; see Coder's doc comment.
type Factory func(level int) Coder

// Registry maps method ids to coder factories. A Registry is an
// explicit, caller-supplied dependency rather than a process-wide global
// lookup table, so two Coordinators can carry different codec sets
// without coordinating.
type Registry struct {
	factories map[MethodID]Factory
}

// NewRegistry returns a Registry pre-populated with this package's
// built-in coders: Store, Deflate, LZMA, and the zstd-backed LZMA2 slot.
// AES is registered separately via RegisterAES since it additionally
// needs a password and is only ever appended to a chain, never selected
// as the primary data coder.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[MethodID]Factory)}
	r.Register(Store, NewStoreCoder)
	r.Register(Deflate, NewDeflateCoder)
	r.Register(LZMA, NewLZMACoder)
	r.Register(LZMA2, NewZstdCoder)
	return r
}

// Register installs or replaces the factory for id.
func (r *Registry) Register(id MethodID, f Factory) {
	r.factories[id] = f
}

// New constructs a fresh Coder for id at the given level. It returns an
// error if id is not registered.
func (r *Registry) New(id MethodID, level int) (Coder, error) {
	f, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("coders: no factory registered for method id %#x", uint64(id))
	}
	return f(level), nil
}

// Has reports whether id has a registered factory.
func (r *Registry) Has(id MethodID) bool {
	_, ok := r.factories[id]
	return ok
}

// RegisterAES installs the AES256SHA256 factory. It is not registered by
// NewRegistry by default since it is only ever appended to a coder chain
// as the header/data encryption stage, never selected as a batch's primary
// method id.
func (r *Registry) RegisterAES() {
	r.Register(AES256SHA256, NewAESCoder)
}
