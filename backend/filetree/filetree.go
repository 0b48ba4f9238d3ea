/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package filetree implements backend.Dispatcher as one directory per
// (partition, epoch), one file per record keyed by SLS-ID, written
// atomically via renameio so a crash mid-pass never leaves a partially
// written record visible.
package filetree

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio"

	"github.com/rcslab/aurora-sub000/backend"
	"github.com/rcslab/aurora-sub000/record"
)

const manifestName = "manifest"

// Tree is a filesystem-rooted backend.Dispatcher.
type Tree struct {
	Root string
}

func New(root string) *Tree { return &Tree{Root: root} }

func (t *Tree) epochDir(oid int, epoch uint64) string {
	return filepath.Join(t.Root, fmt.Sprintf("part-%d", oid), strconv.FormatUint(epoch, 10))
}

func (t *Tree) Setup() error { return os.MkdirAll(t.Root, 0o755) }

func (t *Tree) Teardown() error { return nil }

// Import walks the root directory, reading every epoch directory's
// manifest file into a backend.Manifest.
func (t *Tree) Import() ([]backend.Manifest, error) {
	var out []backend.Manifest
	partDirs, err := os.ReadDir(t.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, pd := range partDirs {
		if !pd.IsDir() || !strings.HasPrefix(pd.Name(), "part-") {
			continue
		}
		var oid int
		if _, err := fmt.Sscanf(pd.Name(), "part-%d", &oid); err != nil {
			continue
		}
		epochDirs, err := os.ReadDir(filepath.Join(t.Root, pd.Name()))
		if err != nil {
			return nil, err
		}
		for _, ed := range epochDirs {
			if !ed.IsDir() {
				continue
			}
			epoch, err := strconv.ParseUint(ed.Name(), 10, 64)
			if err != nil {
				continue
			}
			data, err := os.ReadFile(filepath.Join(t.Root, pd.Name(), ed.Name(), manifestName))
			if err != nil {
				return nil, err
			}
			out = append(out, backend.Manifest{PartitionOID: oid, Epoch: epoch, RecordIDs: decodeManifest(data)})
		}
	}
	return out, nil
}

func (t *Tree) Export() error { return nil }

func (t *Tree) PartAdd(oid int) error {
	return os.MkdirAll(filepath.Join(t.Root, fmt.Sprintf("part-%d", oid)), 0o755)
}

func (t *Tree) SetEpoch(oid int, epoch uint64) error {
	dir := filepath.Join(t.Root, fmt.Sprintf("part-%d", oid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(dir, "last-epoch"), []byte(strconv.FormatUint(epoch, 10)), 0o644)
}

// Persist writes one file per record under <root>/part-<oid>/<epoch>/
// plus a manifest file, each written atomically via renameio so a
// partial write is never observed by a concurrent Import.
func (t *Tree) Persist(oid int, epoch uint64, cd *record.CheckpointData) error {
	dir := t.epochDir(oid, epoch)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	ids := make([]record.ID, 0, cd.Len())
	for _, rec := range cd.Records() {
		name := strconv.FormatUint(uint64(rec.ID), 10)
		if err := renameio.WriteFile(filepath.Join(dir, name), encodeRecord(rec), 0o644); err != nil {
			return fmt.Errorf("filetree: write record %d: %w", rec.ID, err)
		}
		ids = append(ids, rec.ID)
	}
	return renameio.WriteFile(filepath.Join(dir, manifestName), encodeManifest(ids), 0o644)
}

func encodeRecord(rec *record.Record) []byte {
	var typ [4]byte
	binary.BigEndian.PutUint32(typ[:], uint32(rec.Type))
	return append(typ[:], rec.Bytes()...)
}

func encodeManifest(ids []record.ID) []byte {
	b := make([]byte, 8+8*len(ids))
	binary.BigEndian.PutUint64(b[:8], uint64(len(ids)))
	for i, id := range ids {
		binary.BigEndian.PutUint64(b[8+8*i:16+8*i], uint64(id))
	}
	return b
}

func decodeManifest(b []byte) []record.ID {
	if len(b) < 8 {
		return nil
	}
	n := binary.BigEndian.Uint64(b[:8])
	ids := make([]record.ID, 0, n)
	for i := uint64(0); i < n && 8+8*(i+1) <= uint64(len(b)); i++ {
		ids = append(ids, record.ID(binary.BigEndian.Uint64(b[8+8*i:16+8*i])))
	}
	return ids
}
