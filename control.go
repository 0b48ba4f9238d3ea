/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package aurora

import (
	"github.com/rcslab/aurora-sub000/capture"
	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/hostport"
	"github.com/rcslab/aurora-sub000/partition"
	"github.com/rcslab/aurora-sub000/process"
	"github.com/rcslab/aurora-sub000/record"
)

// hostGatherer adapts Module's single hostport.ProcessHost plus a
// caller-supplied children lookup to partition.Gatherer.
type hostGatherer struct {
	host     hostport.ProcessHost
	children func(pid int) []int
}

func (g *hostGatherer) Host() hostport.ProcessHost { return g.host }
func (g *hostGatherer) Children(pid int) []int {
	if g.children == nil {
		return nil
	}
	return g.children(pid)
}

// ProcessCapturer is the per-process, per-resource capture callback
// Checkpoint needs from a caller: given a pid, enumerate its threads,
// VM map, fds, and signal table and serialize them into cd. This is a
// narrow seam rather than a hard dependency on a concrete fd-walking
// implementation, since enumerating a live process's resources is
// entirely host-specific.
type ProcessCapturer interface {
	CaptureProcess(cd *record.CheckpointData, table *capture.Table, engine *cow.Engine, pid int) error
	CaptureSysV(cd *record.CheckpointData) error
}

// Checkpoint runs one checkpoint pass against partition oid. For a periodic partition the caller is expected to loop
// calling Checkpoint itself, sleeping p.SleepRemaining between calls;
// this method always performs exactly one pass.
func (m *Module) Checkpoint(oid int, recurse bool, table *capture.Table, cap ProcessCapturer, children func(pid int) []int) (uint64, error) {
	p, err := m.lookup(oid)
	if err != nil {
		return 0, err
	}
	gath := &hostGatherer{host: m.Host, children: children}
	hooks := partition.PassHooks{
		CapturePID: func(cd *record.CheckpointData, pid int) error {
			return cap.CaptureProcess(cd, table, m.Engine, pid)
		},
		CaptureSysV: cap.CaptureSysV,
	}
	epoch := p.Epoch()
	if err := p.RunPass(gath, m.Engine, m.Backend, hooks, m.Log, recurse); err != nil {
		return 0, err
	}
	return epoch + 1, nil
}

// EpochWait reports or blocks on durability of a given epoch.
func (m *Module) EpochWait(oid int, epoch uint64, sync bool) (bool, error) {
	p, err := m.lookup(oid)
	if err != nil {
		return false, err
	}
	return p.EpochWait(epoch, sync), nil
}

// MemSnap runs a region-scoped capture pass.
func (m *Module) MemSnap(oid, pid int, entry *cow.Entry, async bool, do func(ticket uint64, cd *record.CheckpointData) error) (uint64, error) {
	p, err := m.lookup(oid)
	if err != nil {
		return 0, err
	}
	return p.MemSnap(m.Engine, pid, entry, async, do)
}

// Restore starts a restore pass for oid, blocking until it completes
// and propagating its error. restoreFn is supplied by the caller since
// reconstructing live OS resources from decoded
// process.ProcessDesc/VMSpaceDesc/... records is entirely host-
// specific and out of this package's scope; for a Metropolis
// partition, restoreFn is expected to call process.SpliceAcceptedSocket
// for every process with AcceptPending set once that process's fd
// table and threads are restored.
func (m *Module) Restore(oid int, manifest []record.ID, cd *record.CheckpointData, restoreFn func(barrier *process.Barrier, cd *record.CheckpointData, ids []record.ID) error) error {
	p, err := m.lookup(oid)
	if err != nil {
		return err
	}
	if err := p.SetState(partition.Available, partition.Restoring, true); err != nil {
		return err
	}
	barrier := process.NewBarrier()
	err = restoreFn(barrier, cd, manifest)
	if serr := p.SetState(partition.Restoring, partition.Available, true); serr != nil && err == nil {
		err = serr
	}
	return err
}
