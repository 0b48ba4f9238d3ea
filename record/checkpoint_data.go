/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package record

import (
	"sync"

	"github.com/rcslab/aurora-sub000/internal/kv"
)

// CheckpointData is the reference-counted container bundling a
// capture pass's records, shadow table, and vnode set (// "Checkpoint data").
type CheckpointData struct {
	mu      sync.Mutex
	records map[ID]*Record
	ids     *idGen

	// Shadow is {original VM object SLS-ID -> shadow SLS-ID}, the
	// table built by the CoW engine during this pass.
	Shadow *kv.Map

	// Vnodes is the set of active vnodes referenced by captured
	// resources in this pass, each holding one vnode reference.
	Vnodes *kv.Map

	refcount int
}

// NewCheckpointData allocates an empty checkpoint-data container with
// one reference already held by the caller (mirrors step 5
// "allocate a fresh checkpoint-data container").
func NewCheckpointData() *CheckpointData {
	return &CheckpointData{
		records:  make(map[ID]*Record),
		ids:      newIDGen(),
		Shadow:   kv.New(16),
		Vnodes:   kv.New(16),
		refcount: 1,
	}
}

// NewID allocates a fresh SLS-ID unique within this checkpoint-data
// container.
func (cd *CheckpointData) NewID() ID {
	return cd.ids.Next()
}

// GetRecord creates (or returns the existing) record for id/typ.
func (cd *CheckpointData) GetRecord(id ID, typ Type) *Record {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	if r, ok := cd.records[id]; ok {
		return r
	}
	r := NewRecord(id, typ)
	cd.records[id] = r
	return r
}

// Record looks up an existing record by id.
func (cd *CheckpointData) Record(id ID) (*Record, bool) {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	r, ok := cd.records[id]
	return r, ok
}

// Records returns a snapshot slice of every record currently held.
func (cd *CheckpointData) Records() []*Record {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	out := make([]*Record, 0, len(cd.records))
	for _, r := range cd.records {
		out = append(out, r)
	}
	return out
}

// Len reports the number of records currently stored.
func (cd *CheckpointData) Len() int {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return len(cd.records)
}

// Hold takes an additional reference.
func (cd *CheckpointData) Hold() {
	cd.mu.Lock()
	cd.refcount++
	cd.mu.Unlock()
}

// VnodeReleaser releases one reference on a captured vnode, keyed by
// the vnode's SLS-ID. Concrete vnode lifetime lives behind hostport;
// record stays decoupled from it via this narrow callback interface.
type VnodeReleaser func(id ID)

// ShadowDropper drops the capture's reference on a VM object keyed by
// SLS-ID. Concrete object refcounting lives in package cow; record
// stays decoupled from it via this narrow callback interface.
type ShadowDropper func(id ID)

// Drop releases one reference. On the last drop it runs the
// teardown order: collapse the shadow table (using successor if
// non-nil), release every held vnode, then destroy every record.
// Returns true if this call was the last drop.
func (cd *CheckpointData) Drop(successor *kv.Map, dropShadowRef ShadowDropper, releaseVnode VnodeReleaser) bool {
	cd.mu.Lock()
	cd.refcount--
	last := cd.refcount == 0
	cd.mu.Unlock()
	if !last {
		return false
	}

	cd.collapse(successor, dropShadowRef)

	if releaseVnode != nil {
		it := cd.Vnodes.IterStart()
		for {
			vid, _, ok := it.IterCont()
			if !ok {
				break
			}
			releaseVnode(ID(vid))
		}
	}

	cd.mu.Lock()
	cd.records = make(map[ID]*Record)
	cd.mu.Unlock()
	return true
}

// collapse implements collapse operator: without a
// successor table, drop the capture reference on every original. With
// a successor table (delta mode), telescope two-level shadow chains
// into one: if a pair's shadow also appears as a key in the successor
// table (the next pass shadowed our shadow), drop the reference on
// the shadow instead and rewrite the successor entry to key by the
// original; otherwise drop the reference on the original.
func (cd *CheckpointData) collapse(successor *kv.Map, dropRef ShadowDropper) {
	if dropRef == nil {
		return
	}
	it := cd.Shadow.IterStart()
	type rewrite struct{ oldKey, newKey, val uint64 }
	var rewrites []rewrite
	for {
		origU, shadowU, ok := it.IterCont()
		if !ok {
			break
		}
		if successor != nil {
			if nextShadow, err := successor.Find(shadowU); err == nil {
				dropRef(ID(shadowU))
				rewrites = append(rewrites, rewrite{oldKey: shadowU, newKey: origU, val: nextShadow})
				continue
			}
		}
		dropRef(ID(origU))
	}
	for _, rw := range rewrites {
		successor.Del(rw.oldKey)
		successor.Set(rw.newKey, rw.val)
	}
}
