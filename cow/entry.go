/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package cow

import "github.com/rcslab/aurora-sub000/record"

// Protection flags, matching "protection, max-protection".
type Prot uint32

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
)

func (p Prot) Writable() bool { return p&ProtWrite != 0 }

// Inherit mirrors the VM map entry inheritance attribute (share/copy/
// none across fork-equivalent operations).
type Inherit int

const (
	InheritShare Inherit = iota
	InheritCopy
	InheritNone
)

// Entry is a captured VM map entry.
type Entry struct {
	Start, End   uint64
	Offset       uint64
	MapFlags     uint32
	Prot         Prot
	MaxProt      Prot
	Inherit      Inherit
	Object       *Object
	ObjectKind   ObjectKind
	VnodeID      record.ID

	// CoWFlagged records whether this entry's mapping is already
	// marked copy-on-write at the pmap level, used by the "safe to
	// share directly" assertion in step 2.
	CoWFlagged bool
}

// SizePages returns the entry's page count given the host page size.
func (e *Entry) SizePages(pageSize uint64) uint64 {
	if pageSize == 0 {
		return 0
	}
	return (e.End - e.Start + pageSize - 1) / pageSize
}
