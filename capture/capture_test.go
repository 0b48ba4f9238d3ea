/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcslab/aurora-sub000/record"
)

func TestDeviceAllowList(t *testing.T) {
	tbl := NewDefaultTable()
	ok := &DeviceDesc{Path: "/dev/null"}
	require.True(t, tbl.Supported(ok))
	bad := &DeviceDesc{Path: "/dev/sda"}
	require.False(t, tbl.Supported(bad))
}

func TestPipeSharedIDSecondAppearanceSkipped(t *testing.T) {
	tbl := NewDefaultTable()
	cd := record.NewCheckpointData()
	ctx := &Context{CD: cd, Restored: make(map[record.ID]Desc)}

	readEnd := &PipeDesc{ID: 42, Peer: 42, WriteEnd: false, Buf: []byte("hi")}
	writeEnd := &PipeDesc{ID: 42, Peer: 42, WriteEnd: true}

	id1, err := tbl.Checkpoint(ctx, readEnd)
	require.NoError(t, err)
	id2, err := tbl.Checkpoint(ctx, writeEnd)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	require.Equal(t, 1, cd.Len())
}

func TestSocketRestoreRebindsEphemeralPort(t *testing.T) {
	tbl := NewDefaultTable()
	cd := record.NewCheckpointData()
	sd := &SocketDesc{ID: 7, Family: FamilyInet, LocalPort: 8080, SockType: 1}
	id, err := tbl.Checkpoint(&Context{CD: cd}, sd)
	require.NoError(t, err)

	rec, ok := cd.Record(id)
	require.True(t, ok)
	rec.Seal()

	restoreCtx := &Context{Restored: make(map[record.ID]Desc)}
	desc, err := tbl.Restore(restoreCtx, KindSocket, rec)
	require.NoError(t, err)
	got := desc.(*SocketDesc)
	require.Equal(t, uint16(0), got.LocalPort)
}

func TestSocketRestoreListeningKeepsCapturedPort(t *testing.T) {
	tbl := NewDefaultTable()
	cd := record.NewCheckpointData()
	sd := &SocketDesc{ID: 7, Family: FamilyInet, LocalPort: 4242, Backlog: 16, SockType: 1}
	id, err := tbl.Checkpoint(&Context{CD: cd}, sd)
	require.NoError(t, err)

	rec, ok := cd.Record(id)
	require.True(t, ok)
	rec.Seal()

	restoreCtx := &Context{Restored: make(map[record.ID]Desc)}
	desc, err := tbl.Restore(restoreCtx, KindSocket, rec)
	require.NoError(t, err)
	got := desc.(*SocketDesc)
	require.Equal(t, uint16(4242), got.LocalPort)
}

func TestSocketRestoreMetropolisTakesRandomPortAndReports(t *testing.T) {
	tbl := NewDefaultTable()
	cd := record.NewCheckpointData()
	sd := &SocketDesc{ID: 7, Family: FamilyInet, LocalPort: 4242, Backlog: 16, SockType: 1}
	id, err := tbl.Checkpoint(&Context{CD: cd}, sd)
	require.NoError(t, err)

	rec, ok := cd.Record(id)
	require.True(t, ok)
	rec.Seal()

	var reported uint16
	restoreCtx := &Context{
		Restored:   make(map[record.ID]Desc),
		Metropolis: true,
		PortReport: func(id record.ID, port uint16) { reported = port },
	}
	desc, err := tbl.Restore(restoreCtx, KindSocket, rec)
	require.NoError(t, err)
	got := desc.(*SocketDesc)
	require.NotEqual(t, uint16(4242), got.LocalPort)
	require.Equal(t, got.LocalPort, reported)
}

func TestKqueueKnoteRoundTrip(t *testing.T) {
	tbl := NewDefaultTable()
	cd := record.NewCheckpointData()
	kd := &KqueueDesc{ID: 5, Knotes: []Knote{
		{TargetID: 1, Filter: -1, Flags: 1, FFlags: 0, Data: 0, UData: 99},
	}}
	id, err := tbl.Checkpoint(&Context{CD: cd}, kd)
	require.NoError(t, err)
	rec, _ := cd.Record(id)
	rec.Seal()

	restored, err := tbl.Restore(&Context{Restored: make(map[record.ID]Desc)}, KindKqueue, rec)
	require.NoError(t, err)
	got := restored.(*KqueueDesc)
	require.Len(t, got.Knotes, 1)
	require.Equal(t, uint64(99), got.Knotes[0].UData)
}
