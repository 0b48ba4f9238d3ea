/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package partition

import (
	"fmt"
	"time"

	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/hostport"
	"github.com/rcslab/aurora-sub000/internal/kv"
	"github.com/rcslab/aurora-sub000/log"
	"github.com/rcslab/aurora-sub000/record"
)

// Backend is the narrow seam a checkpoint pass hands its finished
// checkpoint-data container to. Concrete implementations (local store,
// file tree, streaming peer) live in package backend; partition only
// depends on this interface to avoid importing every backend.
type Backend interface {
	Persist(oid int, epoch uint64, cd *record.CheckpointData) error
}

// Gatherer enumerates a process's still-alive children so a recursive
// pass can pull them into the working set, and stops/releases a
// process at the syscall boundary.
type Gatherer interface {
	Host() hostport.ProcessHost
	Children(pid int) []int
}

// PassHooks lets the capture/process packages plug into a pass
// without this package importing them directly (process depends on
// cow and hostport already; looping the import back here would be
// circular). CapturePID captures one process's full state into cd.
type PassHooks struct {
	CapturePID func(cd *record.CheckpointData, pid int) error
	CaptureSysV func(cd *record.CheckpointData) error
}

// current holds the partition's resident checkpoint-data container for
// memory targets and delta mode, where compaction merges forward
// rather than dropping.
type current struct {
	cd *record.CheckpointData
}

// RunPass executes one full checkpoint pass for
// a non-periodic (one-shot) partition. Periodic scheduling is the
// caller's responsibility (sleep period-elapsed, loop); RunPass always
// performs exactly one iteration and returns once it has either
// persisted and compacted or aborted with an error.
func (p *Partition) RunPass(gath Gatherer, engine *cow.Engine, backend Backend, hooks PassHooks, lgr *log.Logger, recurse bool) error {
	if err := p.SetState(Available, Checkpointing, true); err != nil {
		return err
	}

	working := p.gatherWorkingSet(gath, recurse)

	for _, pid := range working {
		if err := gath.Host().StopAtBoundary(pid); err != nil {
			p.abort(lgr, nil, nil, err)
			return err
		}
	}

	ticket := p.PreAdvance()

	cd := record.NewCheckpointData()

	if hooks.CaptureSysV != nil {
		if err := hooks.CaptureSysV(cd); err != nil {
			p.releaseAll(gath, working)
			p.abort(lgr, engine, cd, err)
			return err
		}
	}
	for _, pid := range working {
		if err := hooks.CapturePID(cd, pid); err != nil {
			p.releaseAll(gath, working)
			p.abort(lgr, engine, cd, err)
			return err
		}
	}

	p.releaseAll(gath, working)

	if !p.Flags.NoCheckpoint || p.Mode == ModeDelta {
		if err := backend.Persist(p.OID, ticket, cd); err != nil {
			lgr.Error("checkpoint pass: backend persist failed", log.F("oid", p.OID), log.F("err", err))
			p.Advance(ticket)
			p.setCompactionSource(cd, engine, nil)
			_ = p.SetState(Checkpointing, Available, false)
			return fmt.Errorf("partition: persist: %w", err)
		}
	}

	p.Advance(ticket)
	p.compact(cd, engine)

	if err := p.SetState(Checkpointing, Available, true); err != nil {
		return err
	}
	return nil
}

func (p *Partition) gatherWorkingSet(gath Gatherer, recurse bool) []int {
	working := make(map[int]struct{})
	for _, pid := range p.PIDs() {
		alive, exiting := gath.Host().Alive(pid)
		if alive && !exiting {
			working[pid] = struct{}{}
		} else {
			p.DropPID(pid)
		}
	}
	if recurse {
		for {
			grew := false
			for pid := range working {
				for _, child := range gath.Children(pid) {
					if _, ok := working[child]; ok {
						continue
					}
					alive, exiting := gath.Host().Alive(child)
					if alive && !exiting {
						working[child] = struct{}{}
						grew = true
					}
				}
			}
			if !grew {
				break
			}
		}
	}
	out := make([]int, 0, len(working))
	for pid := range working {
		out = append(out, pid)
	}
	return out
}

func (p *Partition) releaseAll(gath Gatherer, pids []int) {
	for _, pid := range pids {
		gath.Host().Release(pid)
	}
}

// abort unwinds a failed pass: cd's shadow table (if any was already
// built, i.e. capture had started) is collapsed with no successor so
// every pending object reference this pass took is released, then the
// partition returns to Available.
func (p *Partition) abort(lgr *log.Logger, engine *cow.Engine, cd *record.CheckpointData, err error) {
	if lgr != nil {
		lgr.Error("checkpoint pass aborted", log.F("oid", p.OID), log.F("err", err))
	}
	if engine != nil && cd != nil {
		engine.Collapse(cd, nil, nil)
	}
	p.mu.Lock()
	p.state = Available
	p.cond.Broadcast()
	p.mu.Unlock()
}

// compact folds the pass's shadow table into the partition's resident
// checkpoint (memory target or delta mode) via the CoW engine's
// successor-aware collapse, or drops it outright otherwise.
func (p *Partition) compact(cd *record.CheckpointData, engine *cow.Engine) {
	p.mu.Lock()
	resident := p.resident
	p.mu.Unlock()

	if (p.Target == TargetMemory || p.Mode == ModeDelta) && resident != nil {
		engine.Collapse(cd, resident.cd.Shadow, nil)
		p.mu.Lock()
		p.resident = &current{cd: cd}
		p.mu.Unlock()
		return
	}
	engine.Collapse(cd, nil, nil)
	if p.Target == TargetMemory || p.Mode == ModeDelta {
		p.mu.Lock()
		p.resident = &current{cd: cd}
		p.mu.Unlock()
	}
}

func (p *Partition) setCompactionSource(cd *record.CheckpointData, engine *cow.Engine, successor *kv.Map) {
	engine.Collapse(cd, successor, nil)
}

// SleepRemaining sleeps for period-elapsed before the next periodic
// pass, or returns immediately for one-shot partitions.
func (p *Partition) SleepRemaining(elapsed time.Duration) {
	if p.Period <= 0 {
		return
	}
	remaining := time.Duration(p.Period)*time.Millisecond - elapsed
	if remaining > 0 {
		time.Sleep(remaining)
	}
}
