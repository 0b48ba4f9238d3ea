/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import "github.com/rcslab/aurora-sub000/record"

// PTSDesc captures one end of a pseudo-terminal pair. Master and slave
// share one SLS-ID the same way pipe ends do, cross-referencing each
// other so restore can reopen the pair and reattach the controlling
// terminal afterward (tty-fixup).
type PTSDesc struct {
	ID       record.ID
	Peer     record.ID
	IsMaster bool

	Termios  []byte // opaque struct termios bytes
	Winsize  []byte // opaque struct winsize bytes
	Flags    uint32

	InQueue  []byte
	OutQueue []byte
}

func (PTSDesc) Kind() Kind { return KindPTS }

var ptsHooks = Hooks{
	Supported: func(d Desc) bool { _, ok := d.(*PTSDesc); return ok },
	SLSID:     func(d Desc) record.ID { return d.(*PTSDesc).ID },
	Checkpoint: func(ctx *Context, d Desc) (record.ID, error) {
		pd := d.(*PTSDesc)
		if existing, ok := ctx.CD.Record(pd.ID); ok && existing.Sealed() {
			return pd.ID, nil
		}
		rec := ctx.CD.GetRecord(pd.ID, record.TypePTS)
		if err := rec.WriteUint64(uint64(pd.Peer)); err != nil {
			return 0, err
		}
		if err := rec.WriteByte(boolByte(pd.IsMaster)); err != nil {
			return 0, err
		}
		if err := rec.WriteBytes(pd.Termios); err != nil {
			return 0, err
		}
		if err := rec.WriteBytes(pd.Winsize); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(pd.Flags); err != nil {
			return 0, err
		}
		if err := rec.WriteBytes(pd.InQueue); err != nil {
			return 0, err
		}
		if err := rec.WriteBytes(pd.OutQueue); err != nil {
			return 0, err
		}
		rec.Seal()
		return pd.ID, nil
	},
	Restore: func(ctx *Context, rec *record.Record) (Desc, error) {
		if existing, ok := ctx.Restored[rec.ID]; ok {
			return existing, nil
		}
		r := record.NewReader(rec)
		peer, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		isMasterB, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		termios, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		winsize, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		flags, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		inQ, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		outQ, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		pd := &PTSDesc{
			ID: rec.ID, Peer: record.ID(peer), IsMaster: isMasterB != 0,
			Termios: termios, Winsize: winsize, Flags: flags,
			InQueue: inQ, OutQueue: outQ,
		}
		if ctx.Restored != nil {
			ctx.Restored[rec.ID] = pd
		}
		return pd, nil
	},
}
