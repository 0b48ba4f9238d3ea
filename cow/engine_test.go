/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package cow

import (
	"testing"

	"github.com/rcslab/aurora-sub000/record"
	"github.com/stretchr/testify/require"
)

func TestShadowEntryCreatesShadowAndPreservesReads(t *testing.T) {
	cd := record.NewCheckpointData()
	eng := NewEngine(NopProtector{}, false)

	objID := cd.NewID()
	obj := NewAnonymousObject(objID, 3*4096, 1)
	obj.WritePage(0, []byte("Aurora"))
	eng.Register(obj)

	entry := &Entry{
		Start: 0, End: 3 * 4096,
		Prot: ProtRead | ProtWrite, MaxProt: ProtRead | ProtWrite,
		Object: obj, ObjectKind: KindAnonymousDefault,
	}

	require.NoError(t, eng.ShadowEntry(cd, 1, entry, false))

	shadowID, err := cd.Shadow.Find(uint64(objID))
	require.NoError(t, err)
	require.NotZero(t, shadowID)
	require.NotEqual(t, uint64(objID), shadowID)

	// the entry now points at the shadow, which transparently reads
	// through to the frozen original's data until it diverges.
	require.Equal(t, record.ID(shadowID), entry.Object.ID)
	page, ok := entry.Object.ReadPage(0)
	require.True(t, ok)
	require.Equal(t, "Aurora", string(page))

	// writing to the shadow must not affect the frozen original.
	entry.Object.WritePage(0, []byte("mutate"))
	origPage, ok := obj.ReadPage(0)
	require.True(t, ok)
	require.Equal(t, "Aurora", string(origPage))
}

func TestShadowEntrySkipsNonAnonymous(t *testing.T) {
	cd := record.NewCheckpointData()
	eng := NewEngine(NopProtector{}, false)
	entry := &Entry{ObjectKind: KindVnodeBacked}
	require.NoError(t, eng.ShadowEntry(cd, 1, entry, false))
	require.Equal(t, 0, cd.Shadow.Len())
}

func TestCollapseNoSuccessorDropsOriginalRef(t *testing.T) {
	cd := record.NewCheckpointData()
	eng := NewEngine(NopProtector{}, false)

	objID := cd.NewID()
	obj := NewAnonymousObject(objID, 4096, 1)
	eng.Register(obj)
	entry := &Entry{Start: 0, End: 4096, Prot: ProtRead | ProtWrite, Object: obj, ObjectKind: KindAnonymousDefault}
	require.NoError(t, eng.ShadowEntry(cd, 1, entry, false))

	require.Equal(t, 2, obj.RefCount()) // original creator's ref + capture's stake

	last := eng.Collapse(cd, nil, nil)
	require.True(t, last)
	require.Equal(t, 1, obj.RefCount()) // capture's stake released
}

func TestCollapseWithSuccessorTelescopes(t *testing.T) {
	// Pass 1 shadows obj -> shadow1.
	cd1 := record.NewCheckpointData()
	eng := NewEngine(NopProtector{}, false)
	objID := cd1.NewID()
	obj := NewAnonymousObject(objID, 4096, 1)
	eng.Register(obj)
	e1 := &Entry{Start: 0, End: 4096, Prot: ProtRead | ProtWrite, Object: obj, ObjectKind: KindAnonymousDefault}
	require.NoError(t, eng.ShadowEntry(cd1, 1, e1, false))
	shadow1ID, _ := cd1.Shadow.Find(uint64(objID))

	// Pass 2 shadows shadow1 -> shadow2 (delta), recorded in cd2.
	cd2 := record.NewCheckpointData()
	e2 := &Entry{Start: 0, End: 4096, Prot: ProtRead | ProtWrite, Object: e1.Object, ObjectKind: KindAnonymousDefault}
	require.NoError(t, eng.ShadowEntry(cd2, 1, e2, false))
	shadow2ID, _ := cd2.Shadow.Find(shadow1ID)
	require.NotZero(t, shadow2ID)

	// Collapsing cd1 with cd2's shadow table as successor should
	// telescope: since shadow1 appears as a key in cd2's table, drop
	// the ref on shadow1 and rewrite cd2's entry to key by obj.
	eng.Collapse(cd1, cd2.Shadow, nil)

	_, err := cd2.Shadow.Find(shadow1ID)
	require.Error(t, err, "old key should have been rewritten away")

	v, err := cd2.Shadow.Find(uint64(objID))
	require.NoError(t, err)
	require.Equal(t, shadow2ID, v)
}
