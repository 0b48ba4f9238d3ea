/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package cow implements the copy-on-write memory capture engine:
// object shadowing, ancestor-chain traversal, and per-checkpoint
// collapse of shadow chains.
package cow

import (
	"sync"

	"github.com/rcslab/aurora-sub000/record"
)

// ObjectKind mirrors VM object Type enumeration.
type ObjectKind int

const (
	KindAnonymousDefault ObjectKind = iota
	KindAnonymousSwap
	KindVnodeBacked
	KindPhysical
	KindDevice
)

// IsAnonymous reports whether a kind is default/swap-backed with no
// external handle.
func (k ObjectKind) IsAnonymous() bool {
	return k == KindAnonymousDefault || k == KindAnonymousSwap
}

// Object is a captured VM object.
// Besides the serialized attributes, it carries the live bookkeeping
// the shadowing discipline needs: a reference count, the "in Aurora"
// marker, the backing-chain pointer, and a software page table
// standing in for the host's real VM object pages. The engine
// consumes host VM primitives through hostport rather than
// reimplementing them; this page table is the engine-level model the
// shadowing algorithm operates on.
type Object struct {
	ID           record.ID
	Size         uint64 // bytes
	Kind         ObjectKind
	VnodeID      record.ID // optional, zero if none
	BackerID     record.ID // nearest non-Aurora ancestor, zero if none
	BackerOffset uint64
	UniqueID     uint64 // inherited across shadowing

	mu       sync.Mutex
	refcount int
	inAurora bool
	parent   *Object // backing chain, nil at the root
	pages    map[uint64][]byte
}

// NewAnonymousObject allocates a fresh anonymous VM object with one
// reference held by its creator.
func NewAnonymousObject(id record.ID, size uint64, uniqueID uint64) *Object {
	return &Object{
		ID:       id,
		Size:     size,
		Kind:     KindAnonymousDefault,
		UniqueID: uniqueID,
		refcount: 1,
		pages:    make(map[uint64][]byte),
	}
}

// Ref takes an additional reference.
func (o *Object) Ref() {
	o.mu.Lock()
	o.refcount++
	o.mu.Unlock()
}

// Unref releases a reference, returning true if it was the last one.
func (o *Object) Unref() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refcount--
	if o.refcount < 0 {
		o.refcount = 0
	}
	return o.refcount == 0
}

// RefCount reports the current reference count (diagnostic only).
func (o *Object) RefCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refcount
}

// MarkInAurora flags the object as already recorded for checkpointing.
func (o *Object) MarkInAurora() {
	o.mu.Lock()
	o.inAurora = true
	o.mu.Unlock()
}

func (o *Object) InAurora() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inAurora
}

// WritePage stores page pindex privately on this object (a CoW
// fault), never touching the parent.
func (o *Object) WritePage(pindex uint64, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := append([]byte(nil), data...)
	o.pages[pindex] = cp
}

// ReadPage resolves page pindex by walking the backing chain: this
// object's own pages first, then its parent's, and so on. Standard
// shadow-object read-through: a shadow only materializes pages it has
// diverged on.
func (o *Object) ReadPage(pindex uint64) ([]byte, bool) {
	for cur := o; cur != nil; cur = cur.parentLocked() {
		cur.mu.Lock()
		p, ok := cur.pages[pindex]
		cur.mu.Unlock()
		if ok {
			return p, true
		}
	}
	return nil, false
}

func (o *Object) parentLocked() *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.parent
}

// ResidentPages returns the page indices resident on THIS object only
// (not inherited from its parent), in ascending order, for the object
// actually being captured this pass.
func (o *Object) ResidentPages() []uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]uint64, 0, len(o.pages))
	for p := range o.pages {
		out = append(out, p)
	}
	sortUint64s(out)
	return out
}

func sortUint64s(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Shadow creates a new anonymous object of identical size and offset
// zero, backed by o, inheriting o's UniqueID so recursive dumps still
// resolve it to the same logical object.
func (o *Object) Shadow(newID record.ID) *Object {
	o.mu.Lock()
	size, uid := o.Size, o.UniqueID
	o.mu.Unlock()
	s := &Object{
		ID:       newID,
		Size:     size,
		Kind:     KindAnonymousDefault,
		UniqueID: uid,
		refcount: 1,
		pages:    make(map[uint64][]byte),
		parent:   o,
	}
	return s
}
