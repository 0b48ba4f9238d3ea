/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package partition implements the checkpointing unit: its state
// machine, epoch ticketing, and the orchestration of a full checkpoint
// pass over the processes it owns.
package partition

import (
	"sync"

	"github.com/rcslab/aurora-sub000/aurerr"
)

// State is one of the partition lifecycle states.
type State int

const (
	Available State = iota
	Checkpointing
	Restoring
	Detached
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case Checkpointing:
		return "checkpointing"
	case Restoring:
		return "restoring"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Target selects where a partition's data goes.
type Target int

const (
	TargetLocalStore Target = iota
	TargetFileTree
	TargetSend
	TargetReceive
	TargetMemory
)

// Mode selects full vs delta checkpointing.
type Mode int

const (
	ModeFull Mode = iota
	ModeDelta
)

// Flags bundles the per-partition boolean tunables.
type Flags struct {
	IgnoreUnlinked bool
	LazyRestore    bool
	CacheRestore   bool
	Prefault       bool
	Precopy        bool
	NoCheckpoint   bool
	AsyncSnap      bool

	// Metropolis marks a partition whose processes may be captured
	// mid-accept(): a listening socket's restore takes a random port in
	// [1024,65535] instead of its captured one, and the accepted
	// connection is spliced back into the owning process once restored.
	Metropolis bool
}

// Partition is one checkpointing unit: a numeric OID, a target/mode
// pair, the process set it owns, and the state/epoch machinery a
// checkpoint or restore pass drives it through. Transitions are
// guarded by a single mutex-plus-condvar pair per partition: a
// dedicated sync.Cond per partition rather than a shared pool-keyed
// mutex, since Go makes per-object synchronization cheap and avoids a
// shared pool's false-sharing wakeups.
type Partition struct {
	OID    int
	Target Target
	Mode   Mode
	Period int // ms; 0 = one-shot
	Flags  Flags
	Amplification int

	mu    sync.Mutex
	cond  *sync.Cond
	state State

	refcount int
	pids     map[int]struct{}

	epoch     uint64
	nextEpoch uint64

	// resident holds the partition's in-memory "current" checkpoint for
	// memory targets and delta mode, where compaction merges forward
	// instead of dropping.
	resident *current
}

// New allocates a partition in the available state with one reference
// held by its creator.
func New(oid int, target Target, mode Mode, period int, flags Flags) *Partition {
	p := &Partition{
		OID: oid, Target: target, Mode: mode, Period: period, Flags: flags,
		state: Available, refcount: 1, pids: make(map[int]struct{}),
		Amplification: 1,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// AddPID adds a process to the partition's tracked set.
func (p *Partition) AddPID(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pids[pid] = struct{}{}
}

// PIDs returns a snapshot of the tracked process set.
func (p *Partition) PIDs() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, len(p.pids))
	for pid := range p.pids {
		out = append(out, pid)
	}
	return out
}

func (p *Partition) DropPID(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pids, pid)
}

// State reports the current state.
func (p *Partition) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState attempts the transition from src to dst. If sleep is true
// and the partition is currently not in src (and not detached), it
// blocks on the condition variable and re-checks on every wakeup:
// blocking callers are woken on every state change and re-verify
// rather than assuming the wakeup means their condition holds. If
// sleep is false, a non-matching state returns
// ErrWouldBlock immediately. Detached is sticky: any SetState once
// detached fails with ErrPartitionGone, and entering Detached never
// returns to a prior state.
func (p *Partition) SetState(src, dst State, sleep bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.state == Detached {
			return aurerr.ErrPartitionGone
		}
		if p.state == src {
			p.state = dst
			p.cond.Broadcast()
			return nil
		}
		if !sleep {
			return aurerr.ErrWouldBlock
		}
		p.cond.Wait()
	}
}

// Detach moves the partition to Detached unconditionally; once there,
// no further state change is possible.
func (p *Partition) Detach() {
	p.mu.Lock()
	p.state = Detached
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Hold/Drop implement the partition's own reference count, independent
// of any checkpoint-data container it may be holding.
func (p *Partition) Hold() {
	p.mu.Lock()
	p.refcount++
	p.mu.Unlock()
}

func (p *Partition) Drop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refcount--
	return p.refcount <= 0
}
