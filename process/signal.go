/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package process

import "github.com/rcslab/aurora-sub000/record"

// SignalAction mirrors one slot of a sigaction table: handler address
// (opaque, interpreted only by the restored process itself), flags,
// and the blocked-during-handler mask.
type SignalAction struct {
	Handler uint64
	Flags   uint32
	Mask    uint64
}

// SignalDesc captures a process's full signal-disposition table.
type SignalDesc struct {
	Actions [32]SignalAction
}

// WriteTo serializes sd into rec.
func (sd *SignalDesc) WriteTo(rec *record.Record) error {
	for _, a := range sd.Actions {
		if err := rec.WriteUint64(a.Handler); err != nil {
			return err
		}
		if err := rec.WriteUint32(a.Flags); err != nil {
			return err
		}
		if err := rec.WriteUint64(a.Mask); err != nil {
			return err
		}
	}
	return nil
}

// ReadSignal is the inverse of WriteTo.
func ReadSignal(r *record.Reader) (*SignalDesc, error) {
	sd := &SignalDesc{}
	for i := range sd.Actions {
		h, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		f, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		m, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		sd.Actions[i] = SignalAction{Handler: h, Flags: f, Mask: m}
	}
	return sd, nil
}
