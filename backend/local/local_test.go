/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package local

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcslab/aurora-sub000/record"
)

func TestPersistAndImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "aurora.db"))
	require.NoError(t, err)
	defer store.Teardown()

	require.NoError(t, store.PartAdd(1))

	cd := record.NewCheckpointData()
	rec := cd.GetRecord(1, record.TypeVnode)
	require.NoError(t, rec.WriteString("hello"))
	rec.Seal()

	require.NoError(t, store.Persist(1, 5, cd))

	manifests, err := store.Import()
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	require.Equal(t, 1, manifests[0].PartitionOID)
	require.Equal(t, uint64(5), manifests[0].Epoch)
	require.Equal(t, []record.ID{1}, manifests[0].RecordIDs)
}

func TestOpenTwiceFailsLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aurora.db")
	first, err := Open(path)
	require.NoError(t, err)
	defer first.Teardown()

	_, err = Open(path)
	require.Error(t, err)
}
