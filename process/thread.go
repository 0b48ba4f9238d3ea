/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package process implements per-process capture and restoration: the
// thread, VM-map, process, file-descriptor, and signal-disposition
// records, plus the two-phase barrier that lets a session/process-group
// leader and its followers restore in either order.
package process

import (
	"fmt"

	"github.com/rcslab/aurora-sub000/hostport"
	"github.com/rcslab/aurora-sub000/record"
)

// ThreadDesc captures one thread's register file and signal-mask
// state. GP/FP are opaque architecture blobs round-tripped through
// hostport.RegSet without interpretation.
type ThreadDesc struct {
	TID        int
	Regs       hostport.RegSet
	LastTrap   uint32
	LastErr    uint32
	SigMask    uint64
	OldSigMask uint64
}

// CaptureThread reads a thread's register file via host. It does not
// stop the thread; the caller is expected to have already stopped the
// owning process at a syscall boundary.
func CaptureThread(host hostport.ProcessHost, tid int) (*ThreadDesc, error) {
	regs, err := host.GetRegs(tid)
	if err != nil {
		return nil, fmt.Errorf("process: get regs for tid %d: %w", tid, err)
	}
	return &ThreadDesc{
		TID: tid, Regs: regs,
		LastTrap: regs.LastTrap, LastErr: regs.LastErr,
		SigMask: regs.SignalMask, OldSigMask: regs.OldSigMask,
	}, nil
}

// WriteTo serializes td into rec.
func (td *ThreadDesc) WriteTo(rec *record.Record) error {
	if err := rec.WriteUint32(uint32(td.TID)); err != nil {
		return err
	}
	if err := rec.WriteBytes(td.Regs.GP); err != nil {
		return err
	}
	if err := rec.WriteBytes(td.Regs.FP); err != nil {
		return err
	}
	if err := rec.WriteUint64(td.Regs.FSBase); err != nil {
		return err
	}
	if err := rec.WriteUint32(td.LastTrap); err != nil {
		return err
	}
	if err := rec.WriteUint32(td.LastErr); err != nil {
		return err
	}
	if err := rec.WriteUint64(td.SigMask); err != nil {
		return err
	}
	if err := rec.WriteUint64(td.OldSigMask); err != nil {
		return err
	}
	return nil
}

// ReadThread deserializes a ThreadDesc, the inverse of WriteTo.
func ReadThread(r *record.Reader) (*ThreadDesc, error) {
	tid, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	gp, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	fp, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	fsbase, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	lastTrap, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	lastErr, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	sigMask, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	oldSigMask, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	return &ThreadDesc{
		TID:        int(tid),
		Regs:       hostport.RegSet{GP: gp, FP: fp, FSBase: fsbase, LastTrap: lastTrap, LastErr: lastErr, SignalMask: sigMask, OldSigMask: oldSigMask},
		LastTrap:   lastTrap,
		LastErr:    lastErr,
		SigMask:    sigMask,
		OldSigMask: oldSigMask,
	}, nil
}

// Restore writes td's register file back into a live thread via host.
func (td *ThreadDesc) Restore(host hostport.ProcessHost) error {
	return host.SetRegs(td.TID, td.Regs)
}
