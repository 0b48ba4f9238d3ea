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

// SysvSHMDesc captures one System V shared-memory segment. Restore
// requires the segment's original index to be free in the target
// kernel's shmid table; a collision is a restore-time error rather
// than a silent remap, since any attached process's key/index pair
// would otherwise desync from what it had at capture time.
type SysvSHMDesc struct {
	ID       record.ID
	Index    int
	Key      int32
	Size     uint64
	Mode     uint32
	SeqNum   uint32
	ObjectID record.ID // backing cow.Object SLS-ID
}

func (SysvSHMDesc) Kind() Kind { return KindSysvSHM }

var sysvSHMHooks = Hooks{
	Supported: func(d Desc) bool { _, ok := d.(*SysvSHMDesc); return ok },
	SLSID:     func(d Desc) record.ID { return d.(*SysvSHMDesc).ID },
	Checkpoint: func(ctx *Context, d Desc) (record.ID, error) {
		sd := d.(*SysvSHMDesc)
		rec := ctx.CD.GetRecord(sd.ID, record.TypeSysvSHM)
		if err := rec.WriteUint32(uint32(sd.Index)); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(uint32(sd.Key)); err != nil {
			return 0, err
		}
		if err := rec.WriteUint64(sd.Size); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(sd.Mode); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(sd.SeqNum); err != nil {
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
		index, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		key, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		size, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		mode, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		seq, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		objID, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		sd := &SysvSHMDesc{
			ID: rec.ID, Index: int(index), Key: int32(key), Size: size,
			Mode: mode, SeqNum: seq, ObjectID: record.ID(objID),
		}
		if _, ok := ctx.Objects[sd.ObjectID]; !ok {
			return nil, fmt.Errorf("capture: sysvshm segment %d references unresolved object %d", sd.Index, sd.ObjectID)
		}
		if existing, ok := ctx.Restored[record.ID(uint64(sd.Index)|1<<63)]; ok {
			return nil, fmt.Errorf("capture: sysvshm target index %d already occupied by segment %v", sd.Index, existing)
		}
		ctx.Restored[record.ID(uint64(sd.Index)|1<<63)] = sd
		return sd, nil
	},
}
