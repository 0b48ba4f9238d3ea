/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import "github.com/rcslab/aurora-sub000/record"

// PipeDesc captures one end of a pipe. ID is the
// kernel pipe identifier, not the file-pointer address, so both peers
// share one SLS-ID and the second record is a no-op on restore.
type PipeDesc struct {
	ID       record.ID
	Peer     record.ID
	WriteEnd bool
	InIdx    int
	OutIdx   int
	Buf      []byte // buffered bytes, inline
}

func (PipeDesc) Kind() Kind { return KindPipe }

var pipeHooks = Hooks{
	Supported: func(d Desc) bool { _, ok := d.(*PipeDesc); return ok },
	SLSID:     func(d Desc) record.ID { return d.(*PipeDesc).ID },
	Checkpoint: func(ctx *Context, d Desc) (record.ID, error) {
		pd := d.(*PipeDesc)
		// A second fd for the same pipe ID shares the already-sealed
		// record; peers share an ID and the second one is a no-op.
		if existing, ok := ctx.CD.Record(pd.ID); ok && existing.Sealed() {
			return pd.ID, nil
		}
		rec := ctx.CD.GetRecord(pd.ID, record.TypePipe)
		if err := rec.WriteUint64(uint64(pd.Peer)); err != nil {
			return 0, err
		}
		if err := rec.WriteByte(boolByte(pd.WriteEnd)); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(uint32(pd.InIdx)); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(uint32(pd.OutIdx)); err != nil {
			return 0, err
		}
		if err := rec.WriteBytes(pd.Buf); err != nil {
			return 0, err
		}
		rec.Seal()
		return pd.ID, nil
	},
	Restore: func(ctx *Context, rec *record.Record) (Desc, error) {
		// First appearance creates both ends; the second is recognized
		// as already-present via ctx.Restored and skipped.
		if existing, ok := ctx.Restored[rec.ID]; ok {
			return existing, nil
		}
		r := record.NewReader(rec)
		peer, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		writeEnd, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		inIdx, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		outIdx, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		buf, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		pd := &PipeDesc{
			ID: rec.ID, Peer: record.ID(peer), WriteEnd: writeEnd != 0,
			InIdx: int(inIdx), OutIdx: int(outIdx), Buf: buf,
		}
		if ctx.Restored != nil {
			ctx.Restored[rec.ID] = pd
		}
		return pd, nil
	},
}
