/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package kv implements a fixed-bucket {u64->u64} hash table with a
// spin-locked mutex per bucket and single-writer snapshotless
// iteration. It is the foundation every higher table in the engine
// (record index, shadow table, vnode set, pgrp/session lookup tables)
// is built on.
package kv

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Pop when the map is empty and by Find
// when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// ErrExists is returned by Add when the key is already present.
var ErrExists = errors.New("kv: key already present")

type bucket struct {
	mu sync.Mutex
	m  map[uint64]uint64
}

// Map is a bucketed {u64->u64} store. The zero value is not usable;
// use New. A Set is the same structure used with the value ignored by
// callers (e.g. used as 1 to mean "present").
type Map struct {
	buckets []*bucket
	mask    uint64
}

// New creates a Map with n buckets. n is rounded up to the next power
// of two so bucket selection can use a mask over the key's low bits
// instead of a modulo.
func New(n int) *Map {
	if n <= 0 {
		n = 16
	}
	p := 1
	for p < n {
		p <<= 1
	}
	buckets := make([]*bucket, p)
	for i := range buckets {
		buckets[i] = &bucket{m: make(map[uint64]uint64)}
	}
	return &Map{buckets: buckets, mask: uint64(p - 1)}
}

func (m *Map) bucketFor(key uint64) *bucket {
	return m.buckets[key&m.mask]
}

// Add inserts key->val, failing if key is already present.
func (m *Map) Add(key, val uint64) error {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.m[key]; ok {
		return ErrExists
	}
	b.m[key] = val
	return nil
}

// Set inserts or overwrites key->val unconditionally.
func (m *Map) Set(key, val uint64) {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[key] = val
}

// Find looks up key, returning ErrNotFound if absent.
func (m *Map) Find(key uint64) (uint64, error) {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.m[key]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

// Del removes one match for key. It is not an error to delete an
// absent key.
func (m *Map) Del(key uint64) {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, key)
}

// Pop removes and returns an arbitrary element, used by the SysV
// segment scan. Returns ErrNotFound when the map is empty.
func (m *Map) Pop() (key, val uint64, err error) {
	for _, b := range m.buckets {
		b.mu.Lock()
		for k, v := range b.m {
			delete(b.m, k)
			b.mu.Unlock()
			return k, v, nil
		}
		b.mu.Unlock()
	}
	return 0, 0, ErrNotFound
}

// Len returns the total element count across all buckets. It is not
// atomic with respect to concurrent mutation; it's a diagnostic, not
// part of the core protocol.
func (m *Map) Len() int {
	n := 0
	for _, b := range m.buckets {
		b.mu.Lock()
		n += len(b.m)
		b.mu.Unlock()
	}
	return n
}

// Iterator performs a single-writer snapshotless walk. Callers MUST
// NOT mutate any bucket of the Map for the duration of an iteration.
type Iterator struct {
	m      *Map
	bidx   int
	keys   []uint64
	idx    int
	done   bool
}

// IterStart begins an iteration.
func (m *Map) IterStart() *Iterator {
	it := &Iterator{m: m}
	it.loadBucket()
	return it
}

func (it *Iterator) loadBucket() {
	for it.bidx < len(it.m.buckets) {
		b := it.m.buckets[it.bidx]
		b.mu.Lock()
		keys := make([]uint64, 0, len(b.m))
		for k := range b.m {
			keys = append(keys, k)
		}
		b.mu.Unlock()
		if len(keys) > 0 {
			it.keys = keys
			it.idx = 0
			return
		}
		it.bidx++
	}
	it.done = true
}

// IterCont advances the iterator, returning ok=false once exhausted.
func (it *Iterator) IterCont() (key, val uint64, ok bool) {
	if it.done {
		return 0, 0, false
	}
	for {
		if it.idx >= len(it.keys) {
			it.bidx++
			it.loadBucket()
			if it.done {
				return 0, 0, false
			}
			continue
		}
		k := it.keys[it.idx]
		it.idx++
		b := it.m.buckets[it.bidx]
		b.mu.Lock()
		v, present := b.m[k]
		b.mu.Unlock()
		if !present {
			// key was removed since the snapshot was taken, by a
			// permitted single-writer mutation between IterCont calls
			continue
		}
		return k, v, true
	}
}

// IterAbort releases iterator-local state early. It is a no-op beyond
// that since IterStart/IterCont hold no lock across calls.
func (it *Iterator) IterAbort() {
	it.done = true
	it.keys = nil
}
