/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import "github.com/rcslab/aurora-sub000/record"

// DeviceDesc captures one of the closed allow-list of device vnodes
//. Everything else fails Supported.
type DeviceDesc struct {
	Path string
}

func (DeviceDesc) Kind() Kind { return KindDevice }

// deviceAllowList is the fixed accept-list names.
var deviceAllowList = map[string]bool{
	"/dev/null":    true,
	"/dev/zero":    true,
	"/dev/random":  true,
	"/dev/urandom": true,
	"/dev/hpet":    true, // high-precision timer
}

var deviceHooks = Hooks{
	Supported: func(d Desc) bool {
		dd, ok := d.(*DeviceDesc)
		return ok && deviceAllowList[dd.Path]
	},
	SLSID: func(d Desc) record.ID {
		return vnodeSLSID(&VnodeDesc{Path: d.(*DeviceDesc).Path})
	},
	Checkpoint: func(ctx *Context, d Desc) (record.ID, error) {
		dd := d.(*DeviceDesc)
		id := deviceHooks.SLSID(d)
		rec := ctx.CD.GetRecord(id, record.TypeVnode)
		if err := rec.WriteString(dd.Path); err != nil {
			return 0, err
		}
		rec.Seal()
		return id, nil
	},
	Restore: func(ctx *Context, rec *record.Record) (Desc, error) {
		r := record.NewReader(rec)
		path, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if !deviceAllowList[path] {
			return nil, ErrUnknownKind
		}
		return &DeviceDesc{Path: path}, nil
	},
}
