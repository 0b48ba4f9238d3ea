/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package hostport defines the narrow interfaces the checkpoint/
// restore core consumes from its host-OS collaborators: the host
// kernel's syscall/VFS/VM primitives are out of scope for this
// engine, which only names the interfaces it needs from them. Nothing
// in this package reimplements a kernel; it either wraps
// golang.org/x/sys/unix for the one real host this port targets
// (Linux/amd64) or, for tests, provides an in-memory double.
package hostport

import "io"

// PageSize is the host page size assumed throughout the engine.
const PageSize = 4096

// VnodeStore is the opaque on-disk backing store keyed by 64-bit inode
// number, with sparse write/seek-hole/seek-data semantics.
// The engine never looks inside a vnode's filesystem; it only opens,
// seeks, reads, and writes through this interface.
type VnodeStore interface {
	// OpenPath opens (or creates) a vnode by VFS path.
	OpenPath(path string, create bool) (Vnode, error)
	// OpenInode revives a vnode anchored in the partition's own
	// backing store (an Aurora-native file) by inode number.
	OpenInode(inode uint64) (Vnode, error)
}

// Vnode is a single opened backing-store file, sparse-aware.
type Vnode interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Inode() uint64
	Path() string
	Truncate(size int64) error
	// SeekHole/SeekData implement the sparse extent navigation the
	// on-disk record layout relies on: SeekHole returns the offset of
	// the next hole at or after off; SeekData the offset of the next
	// data region at or after off. Returns io.EOF past the end of
	// file.
	SeekHole(off int64) (int64, error)
	SeekData(off int64) (int64, error)
}

// ProcessHost is the subset of process-control primitives the engine
// needs from the host kernel: stopping a process at a syscall
// boundary, reading/writing its register state, and signaling it.
// This is the single seam between the engine's process capture logic
// (package process) and whatever real OS mechanism performs it
// (ptrace on Linux in the default implementation; an in-memory fake
// in tests).
type ProcessHost interface {
	// Alive reports whether pid still exists and is not exiting.
	Alive(pid int) (alive, exiting bool)
	// StopAtBoundary stops pid at the next syscall boundary
	// (SINGLE_BOUNDARY) and returns once stopped.
	StopAtBoundary(pid int) error
	// Release resumes a process stopped by StopAtBoundary.
	Release(pid int) error
	// GetRegs/SetRegs capture and restore one thread's general-purpose
	// and floating-point register files.
	GetRegs(tid int) (RegSet, error)
	SetRegs(tid int, r RegSet) error
	// Kill implements the coarse lifecycle operation the restore path
	// and teardown rely on.
	Kill(pid int, sig int) error
}

// RegSet is the architecture register snapshot captured per thread.
// GP/FP are opaque byte blobs (architecture-specific layout); the
// engine never interprets their contents, only round-trips them.
type RegSet struct {
	GP          []byte
	FP          []byte
	FSBase      uint64
	LastTrap    uint32
	LastErr     uint32
	SignalMask  uint64
	OldSigMask  uint64
}

// PagerHooks is the swap-pager hook registration seam: given (object,
// pindex, want-before, want-after), produce a buffer of pages. The
// engine registers one set of hooks per VM object kind
// it backs with SLS data; the host pager calls back into these on a
// real page fault. This port never receives real page faults (no
// kernel component), so no Linux implementation is provided; package
// hostport/mock supplies an in-memory one, and package pageio
// exercises the read/write logic directly against a VnodeStore.
type PagerHooks interface {
	RegisterObject(objectID uint64, read PagerReadFunc) error
	UnregisterObject(objectID uint64) error
}

// PagerReadFunc produces a buffer of pages for (objectID, pindex,
// wantBefore, wantAfter).
type PagerReadFunc func(objectID uint64, pindex uint64, wantBefore, wantAfter int) ([]byte, error)
