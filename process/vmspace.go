/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package process

import (
	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/record"
)

// EntryDesc is one VM map entry, serialized alongside the shadow
// object it points at (or the vnode/device it maps, for non-anonymous
// kinds, which are captured by reference through the capture package).
type EntryDesc struct {
	Start, End uint64
	Prot       cow.Prot
	Inherit    cow.Inherit
	ObjectID   record.ID // shadow object SLS-ID after ShadowEntry
}

// VMSpaceDesc is a process's full VM map: one entry per mapped region.
type VMSpaceDesc struct {
	Entries []EntryDesc
}

// CaptureVMSpace runs the CoW shadowing discipline over every entry in
// a live VM map snapshot (entries, built by the caller from the host's
// map iteration) and returns the serializable descriptor; objects the
// pass creates are registered with engine as a side effect.
func CaptureVMSpace(engine *cow.Engine, cd *record.CheckpointData, pid int, entries []*cow.Entry, full bool) (*VMSpaceDesc, error) {
	desc := &VMSpaceDesc{Entries: make([]EntryDesc, 0, len(entries))}
	for _, e := range entries {
		if err := engine.ShadowEntry(cd, pid, e, full); err != nil {
			return nil, err
		}
		ed := EntryDesc{Start: e.Start, End: e.End, Prot: e.Prot, Inherit: e.Inherit}
		if e.Object != nil {
			ed.ObjectID = e.Object.ID
		}
		desc.Entries = append(desc.Entries, ed)
	}
	return desc, nil
}

// WriteTo serializes vs into rec.
func (vs *VMSpaceDesc) WriteTo(rec *record.Record) error {
	if err := rec.WriteUint32(uint32(len(vs.Entries))); err != nil {
		return err
	}
	for _, e := range vs.Entries {
		if err := rec.WriteUint64(e.Start); err != nil {
			return err
		}
		if err := rec.WriteUint64(e.End); err != nil {
			return err
		}
		if err := rec.WriteByte(byte(e.Prot)); err != nil {
			return err
		}
		if err := rec.WriteByte(byte(e.Inherit)); err != nil {
			return err
		}
		if err := rec.WriteUint64(uint64(e.ObjectID)); err != nil {
			return err
		}
	}
	return nil
}

// ReadVMSpace is the inverse of WriteTo.
func ReadVMSpace(r *record.Reader) (*VMSpaceDesc, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	vs := &VMSpaceDesc{Entries: make([]EntryDesc, 0, n)}
	for i := uint32(0); i < n; i++ {
		start, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		end, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		prot, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		inherit, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		objID, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		vs.Entries = append(vs.Entries, EntryDesc{
			Start: start, End: end, Prot: cow.Prot(prot), Inherit: cow.Inherit(inherit),
			ObjectID: record.ID(objID),
		})
	}
	return vs, nil
}
