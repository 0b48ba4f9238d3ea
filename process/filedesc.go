/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package process

import "github.com/rcslab/aurora-sub000/record"

// FDTableDesc captures a process's open-file table: the current and
// root-directory vnode SLS-IDs, the umask, and a dense fd-number to
// resource-SLS-ID map (the resource itself was already captured and
// serialized by a capture.Table hook; this table just points at it).
type FDTableDesc struct {
	CwdID  record.ID
	RootID record.ID
	Umask  uint16
	FDs    map[int]record.ID
}

// WriteTo serializes fd into rec.
func (fd *FDTableDesc) WriteTo(rec *record.Record) error {
	if err := rec.WriteUint64(uint64(fd.CwdID)); err != nil {
		return err
	}
	if err := rec.WriteUint64(uint64(fd.RootID)); err != nil {
		return err
	}
	if err := rec.WriteUint16(fd.Umask); err != nil {
		return err
	}
	if err := rec.WriteUint32(uint32(len(fd.FDs))); err != nil {
		return err
	}
	for num, id := range fd.FDs {
		if err := rec.WriteUint32(uint32(num)); err != nil {
			return err
		}
		if err := rec.WriteUint64(uint64(id)); err != nil {
			return err
		}
	}
	return nil
}

// ReadFDTable is the inverse of WriteTo.
func ReadFDTable(r *record.Reader) (*FDTableDesc, error) {
	cwd, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	root, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	umask, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	fd := &FDTableDesc{CwdID: record.ID(cwd), RootID: record.ID(root), Umask: umask, FDs: make(map[int]record.ID, n)}
	for i := uint32(0); i < n; i++ {
		num, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		id, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		fd.FDs[int(num)] = record.ID(id)
	}
	return fd, nil
}
