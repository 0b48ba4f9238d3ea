/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package local implements backend.Dispatcher on top of an embedded
// bbolt store: one top-level bucket per partition, one nested bucket
// per epoch, records keyed by big-endian SLS-ID, with a reserved
// "manifest" key listing every record ID written for that epoch.
package local

import (
	"encoding/binary"
	"fmt"

	"github.com/gofrs/flock"
	bolt "go.etcd.io/bbolt"

	"github.com/rcslab/aurora-sub000/backend"
	"github.com/rcslab/aurora-sub000/record"
)

const manifestKey = "__manifest__"

// Store is a bbolt-backed backend.Dispatcher. lock is an advisory
// file lock on the store's path, held for the store's lifetime so two
// Aurora instances never open the same local store concurrently.
type Store struct {
	db   *bolt.DB
	lock *flock.Flock
}

// Open opens (creating if absent) a bbolt database at path, first
// taking an exclusive advisory lock on path+".lock".
func Open(path string) (*Store, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("local: lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("local: store %s is already open elsewhere", path)
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("local: open %s: %w", path, err)
	}
	return &Store{db: db, lock: lock}, nil
}

func partitionBucket(oid int) []byte {
	return []byte(fmt.Sprintf("part-%d", oid))
}

func epochBucket(epoch uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], epoch)
	return b[:]
}

func idKey(id record.ID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

func (s *Store) Setup() error { return nil }

func (s *Store) Teardown() error {
	err := s.db.Close()
	s.lock.Unlock()
	return err
}

// Import enumerates every partition/epoch bucket pair and returns one
// Manifest per (oid, epoch) found, reconstructed from each epoch
// bucket's manifest key.
func (s *Store) Import() ([]backend.Manifest, error) {
	var out []backend.Manifest
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(partName []byte, partBucket *bolt.Bucket) error {
			var oid int
			if _, err := fmt.Sscanf(string(partName), "part-%d", &oid); err != nil {
				return nil
			}
			return partBucket.ForEach(func(epochName []byte, v []byte) error {
				if len(epochName) != 8 {
					return nil
				}
				epoch := binary.BigEndian.Uint64(epochName)
				epochBkt := partBucket.Bucket(epochName)
				if epochBkt == nil {
					return nil
				}
				raw := epochBkt.Get([]byte(manifestKey))
				ids := decodeManifest(raw)
				out = append(out, backend.Manifest{PartitionOID: oid, Epoch: epoch, RecordIDs: ids})
				return nil
			})
		})
	})
	return out, err
}

func (s *Store) Export() error { return nil }

func (s *Store) PartAdd(oid int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(partitionBucket(oid))
		return err
	})
}

func (s *Store) SetEpoch(oid int, epoch uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		part, err := tx.CreateBucketIfNotExists(partitionBucket(oid))
		if err != nil {
			return err
		}
		return part.Put([]byte("__last_epoch__"), epochBucket(epoch))
	})
}

// Persist writes every record in cd into the (oid, epoch) nested
// bucket, plus a manifest entry, in a single transaction.
func (s *Store) Persist(oid int, epoch uint64, cd *record.CheckpointData) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		part, err := tx.CreateBucketIfNotExists(partitionBucket(oid))
		if err != nil {
			return err
		}
		epochBkt, err := part.CreateBucketIfNotExists(epochBucket(epoch))
		if err != nil {
			return err
		}
		ids := make([]record.ID, 0, cd.Len())
		for _, rec := range cd.Records() {
			if err := epochBkt.Put(idKey(rec.ID), encodeRecord(rec)); err != nil {
				return err
			}
			ids = append(ids, rec.ID)
		}
		return epochBkt.Put([]byte(manifestKey), encodeManifest(ids))
	})
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
