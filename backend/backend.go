/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package backend virtualizes persistence behind a fixed operation
// set: setup, teardown, import, export, partadd, setepoch,
// plus the Persist seam package partition consumes. Concrete backends
// live in the local, filetree, stream, and remote subpackages.
package backend

import "github.com/rcslab/aurora-sub000/record"

// Manifest is the per-partition record listing every record SLS-ID
// captured for it, the thing calls the "manifest record".
type Manifest struct {
	PartitionOID int
	Epoch        uint64
	RecordIDs    []record.ID
}

// Dispatcher is the six-method vtable every backend implements, plus
// Persist (the operation package partition actually calls once per
// pass; the other six are lifecycle operations the owning module
// calls directly).
type Dispatcher interface {
	Setup() error
	Teardown() error
	Import() ([]Manifest, error)
	Export() error
	PartAdd(oid int) error
	SetEpoch(oid int, epoch uint64) error

	// Persist writes every record in cd to durable storage under
	// (oid, epoch) and records a manifest for it.
	Persist(oid int, epoch uint64, cd *record.CheckpointData) error
}
