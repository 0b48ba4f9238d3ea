/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package aurora is the root control surface of the checkpoint/
// restore engine: the global module object tracking every
// partition and the process-to-partition map, exposed as Go methods
// rather than an ioctl surface.
package aurora

import (
	"fmt"
	"sync"

	"github.com/rcslab/aurora-sub000/aurerr"
	"github.com/rcslab/aurora-sub000/backend"
	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/hostport"
	"github.com/rcslab/aurora-sub000/log"
	"github.com/rcslab/aurora-sub000/partition"
)

const MaxOID = 1 << 24

// Module is the engine's single global instance: one per running
// process, analogous to the original kernel module's static state.
type Module struct {
	mu         sync.Mutex
	partitions map[int]*partition.Partition
	procOwner  map[int]int // pid -> owning partition oid

	exiting bool
	exitCond *sync.Cond

	Engine  *cow.Engine
	Backend backend.Dispatcher
	Host    hostport.ProcessHost
	Log     *log.Logger
}

// New builds an empty Module wired to the given collaborators.
func New(engine *cow.Engine, be backend.Dispatcher, host hostport.ProcessHost, lgr *log.Logger) *Module {
	if lgr == nil {
		lgr = log.Discard()
	}
	m := &Module{
		partitions: make(map[int]*partition.Partition),
		procOwner:  make(map[int]int),
		Engine:     engine,
		Backend:    be,
		Host:       host,
		Log:        lgr,
	}
	m.exitCond = sync.NewCond(&m.mu)
	return m
}

// PartAdd registers a new partition with the given attributes. oid
// must be unused and in [1, MaxOID].
func (m *Module) PartAdd(oid int, target partition.Target, mode partition.Mode, period int, flags partition.Flags) error {
	if oid < 1 || oid > MaxOID {
		return aurerr.ErrInvalidOID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exiting {
		return aurerr.ErrExiting
	}
	if _, exists := m.partitions[oid]; exists {
		return fmt.Errorf("aurora: partition %d already exists: %w", oid, aurerr.ErrInvalidOID)
	}
	p := partition.New(oid, target, mode, period, flags)
	m.partitions[oid] = p
	if m.Backend != nil {
		if err := m.Backend.PartAdd(oid); err != nil {
			delete(m.partitions, oid)
			return err
		}
	}
	return nil
}

// PartDel detaches a partition permanently.
func (m *Module) PartDel(oid int) error {
	p, err := m.lookup(oid)
	if err != nil {
		return err
	}
	p.Detach()
	m.mu.Lock()
	for pid, owner := range m.procOwner {
		if owner == oid {
			delete(m.procOwner, pid)
		}
	}
	delete(m.partitions, oid)
	m.mu.Unlock()
	return nil
}

// Attach adds pid to a partition's tracked process set. A process may
// belong to at most one partition at a time.
func (m *Module) Attach(oid, pid int) error {
	p, err := m.lookup(oid)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.exiting {
		m.mu.Unlock()
		return aurerr.ErrExiting
	}
	if owner, ok := m.procOwner[pid]; ok && owner != oid {
		m.mu.Unlock()
		return fmt.Errorf("aurora: pid %d already attached to partition %d", pid, owner)
	}
	m.procOwner[pid] = oid
	m.mu.Unlock()
	p.AddPID(pid)
	return nil
}

// InSLS reports whether pid is currently attached to a partition, and
// which one.
func (m *Module) InSLS(pid int) (oid int, inSLS bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, ok := m.procOwner[pid]
	return oid, ok
}

func (m *Module) lookup(oid int) (*partition.Partition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partitions[oid]
	if !ok {
		return nil, aurerr.ErrInvalidOID
	}
	return p, nil
}

// BeginExit marks the module as tearing down: further PartAdd/Attach
// calls are rejected, but in-flight operations are allowed to finish
// rather than being force-cancelled.
func (m *Module) BeginExit() {
	m.mu.Lock()
	m.exiting = true
	m.exitCond.Broadcast()
	m.mu.Unlock()
}
