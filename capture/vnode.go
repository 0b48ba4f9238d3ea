/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import (
	"hash/fnv"

	"github.com/rcslab/aurora-sub000/record"
)

// VnodeDesc captures a regular vnode or FIFO: by full path when
// present in the VFS, or by inode when anchored in the partition's
// own backing store.
type VnodeDesc struct {
	Path     string // empty if captured by inode
	Inode    uint64
	ByInode  bool
	Offset   int64
}

func (VnodeDesc) Kind() Kind { return KindVnode }

func vnodeSLSID(d Desc) record.ID {
	vd := d.(*VnodeDesc)
	h := fnv.New64a()
	if vd.ByInode {
		h.Write([]byte{1})
		var b [8]byte
		putU64(b[:], vd.Inode)
		h.Write(b[:])
	} else {
		h.Write([]byte{0})
		h.Write([]byte(vd.Path))
	}
	return record.ID(h.Sum64())
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

var vnodeHooks = Hooks{
	Supported: func(d Desc) bool {
		vd, ok := d.(*VnodeDesc)
		return ok && (vd.Path != "" || vd.ByInode)
	},
	SLSID: vnodeSLSID,
	Checkpoint: func(ctx *Context, d Desc) (record.ID, error) {
		vd := d.(*VnodeDesc)
		id := vnodeSLSID(d)
		rec := ctx.CD.GetRecord(id, record.TypeVnode)
		if err := rec.WriteByte(boolByte(vd.ByInode)); err != nil {
			return 0, err
		}
		if err := rec.WriteUint64(vd.Inode); err != nil {
			return 0, err
		}
		if err := rec.WriteString(vd.Path); err != nil {
			return 0, err
		}
		if err := rec.WriteUint64(uint64(vd.Offset)); err != nil {
			return 0, err
		}
		rec.Seal()
		ctx.CD.Vnodes.Set(uint64(id), 1)
		return id, nil
	},
	Restore: func(ctx *Context, rec *record.Record) (Desc, error) {
		r := record.NewReader(rec)
		byInodeB, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		inode, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		path, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		offset, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		vd := &VnodeDesc{Path: path, Inode: inode, ByInode: byInodeB != 0, Offset: int64(offset)}
		if vd.ByInode {
			vn, err := ctx.Vnodes.OpenInode(inode)
			if err != nil {
				return nil, err
			}
			defer vn.Close()
		} else {
			vn, err := ctx.Vnodes.OpenPath(path, false)
			if err != nil {
				return nil, err
			}
			defer vn.Close()
		}
		return vd, nil
	},
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
