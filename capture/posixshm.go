/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import (
	"fmt"

	"github.com/rcslab/aurora-sub000/record"
)

// PosixSHMDesc captures a POSIX shared-memory object (shm_open),
// identified by its name and mode, with its contents held by a backing
// VM object shadowed through the same path as anonymous memory.
type PosixSHMDesc struct {
	ID       record.ID
	Name     string
	Mode     uint32
	ObjectID record.ID // backing cow.Object SLS-ID
}

func (PosixSHMDesc) Kind() Kind { return KindPosixSHM }

var posixSHMHooks = Hooks{
	Supported: func(d Desc) bool { _, ok := d.(*PosixSHMDesc); return ok },
	SLSID:     func(d Desc) record.ID { return d.(*PosixSHMDesc).ID },
	Checkpoint: func(ctx *Context, d Desc) (record.ID, error) {
		sd := d.(*PosixSHMDesc)
		rec := ctx.CD.GetRecord(sd.ID, record.TypePosixSHM)
		if err := rec.WriteString(sd.Name); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(sd.Mode); err != nil {
			return 0, err
		}
		if err := rec.WriteUint64(uint64(sd.ObjectID)); err != nil {
			return 0, err
		}
		rec.Seal()
		return sd.ID, nil
	},
	Restore: func(ctx *Context, rec *record.Record) (Desc, error) {
		r := record.NewReader(rec)
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		mode, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		objID, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		sd := &PosixSHMDesc{ID: rec.ID, Name: name, Mode: mode, ObjectID: record.ID(objID)}
		if _, ok := ctx.Objects[sd.ObjectID]; !ok {
			return nil, fmt.Errorf("capture: posixshm %q references unresolved object %d", name, sd.ObjectID)
		}
		return sd, nil
	},
}
