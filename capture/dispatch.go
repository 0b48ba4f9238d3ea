/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package capture implements the per-resource-kind serializers and
// deserializers: a shared small dispatch table mapping a file
// descriptor's kind to four operation hooks (supported, slsid,
// checkpoint, restore), plus the concrete kinds' Desc/Hooks pairs.
package capture

import (
	"fmt"
	"sync"

	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/hostport"
	"github.com/rcslab/aurora-sub000/log"
	"github.com/rcslab/aurora-sub000/record"
)

// Kind identifies a captured resource's type.
type Kind int

const (
	KindVnode Kind = iota
	KindDevice
	KindPipe
	KindSocket
	KindPTS
	KindPosixSHM
	KindSysvSHM
	KindKqueue
)

func (k Kind) String() string {
	switch k {
	case KindVnode:
		return "vnode"
	case KindDevice:
		return "device"
	case KindPipe:
		return "pipe"
	case KindSocket:
		return "socket"
	case KindPTS:
		return "pts"
	case KindPosixSHM:
		return "posixshm"
	case KindSysvSHM:
		return "sysvshm"
	case KindKqueue:
		return "kqueue"
	default:
		return "unknown"
	}
}

// Desc describes one open resource at capture time.
type Desc interface {
	Kind() Kind
}

// Context bundles the dependencies a Checkpoint/Restore hook needs:
// the active checkpoint-data container, the vnode backing store, and
// the CoW engine for resources (SysV/POSIX shm) shadowed through the
// same path as anonymous memory.
type Context struct {
	CD      *record.CheckpointData
	Vnodes  hostport.VnodeStore
	Engine  *cow.Engine
	Log     *log.Logger

	// Restore-only: resolves a VM object SLS-ID to a live *cow.Object
	// reconstructed earlier in the restore pass.
	Objects map[record.ID]*cow.Object
	// Restore-only: cross-kind table for resolving peer SLS-IDs
	// (pipe peers, PTS master/slave, socket pairs) to the Desc already
	// materialized for them, so the "first appearance creates both
	// ends" rule (Pipes/PTS) can be implemented.
	Restored map[record.ID]Desc

	// Restore-only: Metropolis is true when the owning partition was
	// marked partition.Flags.Metropolis, meaning a listening socket
	// restores onto a random port instead of its captured one.
	Metropolis bool
	// Restore-only: PortReport, if set, is called once per listening
	// socket restored under Metropolis with the port it was actually
	// bound to, so the caller can report it back to userspace.
	PortReport func(id record.ID, port uint16)
}

// Hooks is the four-method dispatch entry one resource kind registers
// with a Table.
type Hooks struct {
	// Supported reports whether d can be captured at all (device
	// vnodes, for instance, are only supported if on the allow-list).
	Supported func(d Desc) bool
	// SLSID returns the identifier to key d's record by. Resources
	// that share identity across file-descriptor duplicates (pipes,
	// PTS master/slave) return the same ID for both fds so the second
	// appearance is recognized as already-captured.
	SLSID func(d Desc) record.ID
	// Checkpoint serializes d into ctx.CD, returning the record's ID
	// (normally SLSID(d), but returned explicitly so callers don't
	// need to re-derive it for an already-sealed record).
	Checkpoint func(ctx *Context, d Desc) (record.ID, error)
	// Restore reconstructs a Desc from a sealed record.
	Restore func(ctx *Context, rec *record.Record) (Desc, error)
}

// Table is the shared dispatch table, one Hooks set per Kind.
type Table struct {
	mu    sync.RWMutex
	hooks map[Kind]Hooks
}

func NewTable() *Table {
	return &Table{hooks: make(map[Kind]Hooks)}
}

func (t *Table) Register(k Kind, h Hooks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks[k] = h
}

func (t *Table) lookup(k Kind) (Hooks, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.hooks[k]
	return h, ok
}

// Supported reports whether d's kind has a dispatch entry and that
// entry's Supported hook accepts d. Unsupported descriptors are
// skipped on capture (and logged), never treated as a hard failure.
func (t *Table) Supported(d Desc) bool {
	h, ok := t.lookup(d.Kind())
	if !ok || h.Supported == nil {
		return false
	}
	return h.Supported(d)
}

// Checkpoint dispatches to the registered Checkpoint hook for d.Kind().
func (t *Table) Checkpoint(ctx *Context, d Desc) (record.ID, error) {
	h, ok := t.lookup(d.Kind())
	if !ok || h.Checkpoint == nil {
		return 0, fmt.Errorf("capture: no checkpoint hook for kind %v", d.Kind())
	}
	return h.Checkpoint(ctx, d)
}

// Restore dispatches k to the matching kind's Restore hook.
// An unknown kind at restore is a fatal error, not a skip.
func (t *Table) Restore(ctx *Context, k Kind, rec *record.Record) (Desc, error) {
	h, ok := t.lookup(k)
	if !ok || h.Restore == nil {
		return nil, fmt.Errorf("capture: unsupported resource kind %v at restore: %w", k, ErrUnknownKind)
	}
	return h.Restore(ctx, rec)
}

var ErrUnknownKind = fmt.Errorf("unknown resource kind")

// NewDefaultTable builds a Table with every known resource kind
// registered against this port's default implementations.
func NewDefaultTable() *Table {
	t := NewTable()
	t.Register(KindVnode, vnodeHooks)
	t.Register(KindDevice, deviceHooks)
	t.Register(KindPipe, pipeHooks)
	t.Register(KindSocket, socketHooks)
	t.Register(KindPTS, ptsHooks)
	t.Register(KindPosixSHM, posixSHMHooks)
	t.Register(KindSysvSHM, sysvSHMHooks)
	t.Register(KindKqueue, kqueueHooks)
	return t
}
