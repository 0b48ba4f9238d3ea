/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package process

import "github.com/rcslab/aurora-sub000/record"

// ProcessDesc is one captured process: its thread IDs, and the
// SLS-IDs of its parent/session/process-group leader, each possibly
// self-referential (SelfParent etc.) when this process is itself that
// leader — the "self" flag lets restore recognize the identity case
// without a sentinel ID value.
type ProcessDesc struct {
	PID       int
	Threads   []record.ID // thread record SLS-IDs, one per captured thread
	VMSpaceID record.ID
	FDTableID record.ID
	SignalID  record.ID

	ParentID   record.ID
	SelfParent bool
	SessionID  record.ID
	SelfSession bool
	PgrpID     record.ID
	SelfPgrp   bool

	ExitSignal int

	// AcceptPending marks a process captured mid-accept() under a
	// Metropolis partition. AcceptThread is the SLS-ID (matching an
	// entry in Threads) of the thread blocked inside accept();
	// AcceptSocket is the SLS-ID of the accepted connection's
	// record.Record, captured but not yet installed in any fd table;
	// AcceptFD is the fd number accept() was about to return.
	AcceptPending bool
	AcceptThread  record.ID
	AcceptSocket  record.ID
	AcceptFD      int
}

// WriteTo serializes pd into rec.
func (pd *ProcessDesc) WriteTo(rec *record.Record) error {
	if err := rec.WriteUint32(uint32(pd.PID)); err != nil {
		return err
	}
	if err := rec.WriteUint32(uint32(len(pd.Threads))); err != nil {
		return err
	}
	for _, tid := range pd.Threads {
		if err := rec.WriteUint64(uint64(tid)); err != nil {
			return err
		}
	}
	if err := rec.WriteUint64(uint64(pd.VMSpaceID)); err != nil {
		return err
	}
	if err := rec.WriteUint64(uint64(pd.FDTableID)); err != nil {
		return err
	}
	if err := rec.WriteUint64(uint64(pd.SignalID)); err != nil {
		return err
	}
	if err := rec.WriteUint64(uint64(pd.ParentID)); err != nil {
		return err
	}
	if err := rec.WriteByte(boolByte(pd.SelfParent)); err != nil {
		return err
	}
	if err := rec.WriteUint64(uint64(pd.SessionID)); err != nil {
		return err
	}
	if err := rec.WriteByte(boolByte(pd.SelfSession)); err != nil {
		return err
	}
	if err := rec.WriteUint64(uint64(pd.PgrpID)); err != nil {
		return err
	}
	if err := rec.WriteByte(boolByte(pd.SelfPgrp)); err != nil {
		return err
	}
	if err := rec.WriteUint32(uint32(pd.ExitSignal)); err != nil {
		return err
	}
	if err := rec.WriteByte(boolByte(pd.AcceptPending)); err != nil {
		return err
	}
	if err := rec.WriteUint64(uint64(pd.AcceptThread)); err != nil {
		return err
	}
	if err := rec.WriteUint64(uint64(pd.AcceptSocket)); err != nil {
		return err
	}
	if err := rec.WriteUint32(uint32(pd.AcceptFD)); err != nil {
		return err
	}
	return nil
}

// ReadProcess is the inverse of WriteTo.
func ReadProcess(r *record.Reader) (*ProcessDesc, error) {
	pid, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	pd := &ProcessDesc{PID: int(pid), Threads: make([]record.ID, 0, n)}
	for i := uint32(0); i < n; i++ {
		tid, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		pd.Threads = append(pd.Threads, record.ID(tid))
	}
	vmID, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	fdID, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	sigID, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	parentID, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	selfParent, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	sessionID, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	selfSession, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	pgrpID, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	selfPgrp, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	exitSig, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	acceptPending, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	acceptThread, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	acceptSocket, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	acceptFD, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	pd.VMSpaceID = record.ID(vmID)
	pd.FDTableID = record.ID(fdID)
	pd.SignalID = record.ID(sigID)
	pd.ParentID = record.ID(parentID)
	pd.SelfParent = selfParent != 0
	pd.SessionID = record.ID(sessionID)
	pd.SelfSession = selfSession != 0
	pd.PgrpID = record.ID(pgrpID)
	pd.SelfPgrp = selfPgrp != 0
	pd.ExitSignal = int(exitSig)
	pd.AcceptPending = acceptPending != 0
	pd.AcceptThread = record.ID(acceptThread)
	pd.AcceptSocket = record.ID(acceptSocket)
	pd.AcceptFD = int(acceptFD)
	return pd, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
