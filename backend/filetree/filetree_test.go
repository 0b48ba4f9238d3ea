/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package filetree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcslab/aurora-sub000/record"
)

func TestPersistAndImportRoundTrip(t *testing.T) {
	tree := New(t.TempDir())
	require.NoError(t, tree.Setup())
	require.NoError(t, tree.PartAdd(3))

	cd := record.NewCheckpointData()
	rec := cd.GetRecord(9, record.TypeVnode)
	require.NoError(t, rec.WriteString("data"))
	rec.Seal()

	require.NoError(t, tree.Persist(3, 2, cd))

	manifests, err := tree.Import()
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	require.Equal(t, 3, manifests[0].PartitionOID)
	require.Equal(t, uint64(2), manifests[0].Epoch)
	require.Equal(t, []record.ID{9}, manifests[0].RecordIDs)
}
