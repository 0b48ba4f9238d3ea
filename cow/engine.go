/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package cow

import (
	"fmt"
	"sync"

	"github.com/rcslab/aurora-sub000/internal/kv"
	"github.com/rcslab/aurora-sub000/record"
)

// PageProtector performs the pmap-level write-protect/unmap step of
// ("write-protect (or fully unmap, depending on a
// configuration bit) the entry's pages"). It is the one place this
// package touches a real process's memory; callers supply the
// implementation, and this repository provides only NopProtector,
// which tests use.
type PageProtector interface {
	Protect(pid int, start, end uint64, unmap bool) error
}

// NopProtector satisfies PageProtector without touching any real
// memory, used by tests that only care about the shadow-table
// bookkeeping.
type NopProtector struct{}

func (NopProtector) Protect(int, uint64, uint64, bool) error { return nil }

// Engine implements the shadowing discipline of and the
// collapse operator, with a live registry of every Object it has
// created or learned about so shadow-table SLS-IDs can be resolved
// back to *Object during a pass and at collapse time.
type Engine struct {
	mu        sync.Mutex
	objects   map[record.ID]*Object
	protector PageProtector
	unmap     bool // Tunables "objprotect": unmap vs write-protect
}

func NewEngine(protector PageProtector, unmapOnShadow bool) *Engine {
	if protector == nil {
		protector = NopProtector{}
	}
	return &Engine{objects: make(map[record.ID]*Object), protector: protector, unmap: unmapOnShadow}
}

// Register makes an object resolvable by ID for future shadow lookups
// and collapse.
func (e *Engine) Register(o *Object) {
	e.mu.Lock()
	e.objects[o.ID] = o
	e.mu.Unlock()
}

func (e *Engine) lookup(id record.ID) (*Object, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.objects[id]
	return o, ok
}

// ShadowEntry implements steps 1-4 for a single VM map
// entry of a process being captured. pid identifies the process for
// the pmap write-protect/unmap call. full selects full- vs
// delta-checkpoint ancestor-walk behavior (step 4: "or always, in
// full-checkpoint mode").
func (e *Engine) ShadowEntry(cd *record.CheckpointData, pid int, entry *Entry, full bool) error {
	if !entry.ObjectKind.IsAnonymous() {
		// step 1: not anonymous -> captured by reference only, skip.
		return nil
	}
	obj := entry.Object
	if obj == nil {
		return fmt.Errorf("cow: entry has anonymous kind but no object")
	}

	if shadowIDu, err := cd.Shadow.Find(uint64(obj.ID)); err == nil {
		// step 2: object already in the shadow table this pass.
		if shadowIDu == 0 {
			// mapped shadow is null: object is an ancestor already
			// recorded for checkpointing. Verify it's safe to share
			// directly.
			if !(entry.CoWFlagged || !entry.Prot.Writable() || obj.RefCount() == 0) {
				return fmt.Errorf("cow: unsafe to share ancestor object %d directly", obj.ID)
			}
			return nil
		}
		shadow, ok := e.lookup(record.ID(shadowIDu))
		if !ok {
			return fmt.Errorf("cow: shadow table references unknown object %d", shadowIDu)
		}
		if err := e.protector.Protect(pid, entry.Start, entry.End, e.unmap); err != nil {
			return err
		}
		obj.Unref() // transfer a reference from original to shadow
		shadow.Ref()
		entry.Object = shadow
		entry.CoWFlagged = false // clear the shadow's one-mapping hint
		return nil
	}

	// step 3: not yet in the table at all.
	obj.Ref() // the capture's stake
	shadowID := cd.NewID()
	shadow := obj.Shadow(shadowID)
	e.Register(shadow)
	obj.MarkInAurora()
	if err := e.protector.Protect(pid, entry.Start, entry.End, e.unmap); err != nil {
		return err
	}
	entry.Object = shadow
	if err := cd.Shadow.Add(uint64(obj.ID), uint64(shadow.ID)); err != nil {
		return err
	}

	// step 4: walk the backing-object chain from the original toward
	// the leaves, recording each not-yet-seen anonymous ancestor with
	// a null shadow and an added reference, stopping at the first
	// non-anonymous ancestor.
	e.walkAncestors(cd, obj, full)
	return nil
}

func (e *Engine) walkAncestors(cd *record.CheckpointData, start *Object, full bool) {
	cur := start.parentLocked()
	for cur != nil {
		if cur.Kind != KindAnonymousDefault && cur.Kind != KindAnonymousSwap {
			break
		}
		_, already := cd.Shadow.Find(uint64(cur.ID))
		if already == nil && !full {
			cur = cur.parentLocked()
			continue
		}
		if _, err := cd.Shadow.Find(uint64(cur.ID)); err != nil {
			cur.Ref()
			cd.Shadow.Add(uint64(cur.ID), 0)
			e.Register(cur)
		}
		cur = cur.parentLocked()
	}
}

// ShadowSegment implements region-scoped capture: locate
// the entry, require ref_count == 1 on the anonymous object
// (otherwise reject), then shadow just that entry.
func (e *Engine) ShadowSegment(cd *record.CheckpointData, pid int, entry *Entry) error {
	if entry.Object == nil || entry.Object.RefCount() != 1 {
		return fmt.Errorf("cow: memsnap requires ref_count==1, got object=%v", entry.Object)
	}
	return e.ShadowEntry(cd, pid, entry, false)
}

// DropRef is the record.ShadowDropper the checkpoint-data collapse
// hook calls back into: it resolves id to a live *Object and
// Unrefs it, freeing bookkeeping on the last reference.
func (e *Engine) DropRef(id record.ID) {
	o, ok := e.lookup(id)
	if !ok {
		return
	}
	if o.Unref() {
		e.mu.Lock()
		delete(e.objects, id)
		e.mu.Unlock()
	}
}

// Collapse is a thin wrapper matching destruction order:
// collapse the pass's shadow table, optionally redirecting into
// successor, using this engine's DropRef as the reference-drop
// callback.
func (e *Engine) Collapse(cd *record.CheckpointData, successor *kv.Map, releaseVnode record.VnodeReleaser) bool {
	return cd.Drop(successor, e.DropRef, releaseVnode)
}
