/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import "github.com/rcslab/aurora-sub000/record"

// Knote is one registered event filter within a kqueue: a watched fd's
// SLS-ID, the filter/flags pair, and the opaque filter-specific data
// the original event carried (udata, fflags, etc).
type Knote struct {
	TargetID record.ID
	Filter   int16
	Flags    uint16
	FFlags   uint32
	Data     int64
	UData    uint64
}

// KqueueDesc captures a kqueue descriptor and its registered knotes.
// Restore is two-phase: create the kqueue first, defer EV_ADD
// registration of every knote until every fd it could reference has
// been restored, then register each with EV_DISABLE so no event fires
// before the restored process is resumed.
type KqueueDesc struct {
	ID     record.ID
	Knotes []Knote
}

func (KqueueDesc) Kind() Kind { return KindKqueue }

var kqueueHooks = Hooks{
	Supported: func(d Desc) bool { _, ok := d.(*KqueueDesc); return ok },
	SLSID:     func(d Desc) record.ID { return d.(*KqueueDesc).ID },
	Checkpoint: func(ctx *Context, d Desc) (record.ID, error) {
		kd := d.(*KqueueDesc)
		rec := ctx.CD.GetRecord(kd.ID, record.TypeKqueue)
		if err := rec.WriteUint32(uint32(len(kd.Knotes))); err != nil {
			return 0, err
		}
		for _, kn := range kd.Knotes {
			if err := rec.WriteUint64(uint64(kn.TargetID)); err != nil {
				return 0, err
			}
			if err := rec.WriteUint16(uint16(kn.Filter)); err != nil {
				return 0, err
			}
			if err := rec.WriteUint16(kn.Flags); err != nil {
				return 0, err
			}
			if err := rec.WriteUint32(kn.FFlags); err != nil {
				return 0, err
			}
			if err := rec.WriteUint64(uint64(kn.Data)); err != nil {
				return 0, err
			}
			if err := rec.WriteUint64(kn.UData); err != nil {
				return 0, err
			}
		}
		rec.Seal()
		return kd.ID, nil
	},
	Restore: func(ctx *Context, rec *record.Record) (Desc, error) {
		r := record.NewReader(rec)
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		kd := &KqueueDesc{ID: rec.ID, Knotes: make([]Knote, 0, n)}
		for i := uint32(0); i < n; i++ {
			targetID, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			filter, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			flags, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			fflags, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			data, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			udata, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			kd.Knotes = append(kd.Knotes, Knote{
				TargetID: record.ID(targetID), Filter: int16(filter), Flags: flags,
				FFlags: fflags, Data: int64(data), UData: udata,
			})
		}
		if ctx.Restored != nil {
			ctx.Restored[rec.ID] = kd
		}
		return kd, nil
	},
}

// RegisterKnotes performs the deferred second phase of kqueue restore:
// re-adding every knote with EV_DISABLE once all referenced fds exist.
// A knote whose target resolved to a connected socket marked
// PeerClosed synthesizes an EV_ERROR/ECONNRESET entry instead of a
// live registration, since the peer it watched cannot be reattached.
func RegisterKnotes(ctx *Context, kd *KqueueDesc, add func(kn Knote, synthesizeError bool) error) error {
	for _, kn := range kd.Knotes {
		synth := false
		if target, ok := ctx.Restored[kn.TargetID]; ok {
			if sd, isSock := target.(*SocketDesc); isSock && sd.PeerClosed {
				synth = true
			}
		}
		if err := add(kn, synth); err != nil {
			return err
		}
	}
	return nil
}
