/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package aurora

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcslab/aurora-sub000/aurerr"
	"github.com/rcslab/aurora-sub000/backend"
	"github.com/rcslab/aurora-sub000/capture"
	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/hostport/mock"
	"github.com/rcslab/aurora-sub000/partition"
	"github.com/rcslab/aurora-sub000/record"
)

type simpleBackend struct{ persisted int }

func (b *simpleBackend) Setup() error                          { return nil }
func (b *simpleBackend) Teardown() error                        { return nil }
func (b *simpleBackend) Export() error                          { return nil }
func (b *simpleBackend) PartAdd(oid int) error                   { return nil }
func (b *simpleBackend) SetEpoch(oid int, epoch uint64) error    { return nil }
func (b *simpleBackend) Import() ([]backend.Manifest, error)     { return nil, nil }
func (b *simpleBackend) Persist(oid int, epoch uint64, cd *record.CheckpointData) error {
	b.persisted++
	return nil
}

func TestAttachRejectsUnknownPartition(t *testing.T) {
	host := mock.NewProcessHost()
	m := New(cow.NewEngine(cow.NopProtector{}, false), nil, host, nil)
	err := m.Attach(1, 100)
	require.ErrorIs(t, err, aurerr.ErrInvalidOID)
}

func TestPartAddThenAttachThenInSLS(t *testing.T) {
	host := mock.NewProcessHost()
	host.AddProcess(100)
	m := New(cow.NewEngine(cow.NopProtector{}, false), nil, host, nil)

	require.NoError(t, m.PartAdd(1, partition.TargetLocalStore, partition.ModeFull, 0, partition.Flags{}))
	require.NoError(t, m.Attach(1, 100))

	oid, in := m.InSLS(100)
	require.True(t, in)
	require.Equal(t, 1, oid)
}

func TestPartAddRejectsDuplicateOID(t *testing.T) {
	host := mock.NewProcessHost()
	m := New(cow.NewEngine(cow.NopProtector{}, false), nil, host, nil)
	require.NoError(t, m.PartAdd(2, partition.TargetLocalStore, partition.ModeFull, 0, partition.Flags{}))
	err := m.PartAdd(2, partition.TargetLocalStore, partition.ModeFull, 0, partition.Flags{})
	require.Error(t, err)
}

func TestPartDelDetachesAndForgetsProcess(t *testing.T) {
	host := mock.NewProcessHost()
	host.AddProcess(100)
	m := New(cow.NewEngine(cow.NopProtector{}, false), nil, host, nil)
	require.NoError(t, m.PartAdd(3, partition.TargetLocalStore, partition.ModeFull, 0, partition.Flags{}))
	require.NoError(t, m.Attach(3, 100))
	require.NoError(t, m.PartDel(3))

	_, in := m.InSLS(100)
	require.False(t, in)
	err := m.Attach(3, 100)
	require.ErrorIs(t, err, aurerr.ErrInvalidOID)
}

type nopCapturer struct{ calls int }

func (c *nopCapturer) CaptureProcess(cd *record.CheckpointData, table *capture.Table, engine *cow.Engine, pid int) error {
	c.calls++
	return nil
}
func (c *nopCapturer) CaptureSysV(cd *record.CheckpointData) error { return nil }

func TestCheckpointAdvancesEpoch(t *testing.T) {
	host := mock.NewProcessHost()
	host.AddProcess(100)
	be := &simpleBackend{}
	m := New(cow.NewEngine(cow.NopProtector{}, false), be, host, nil)
	require.NoError(t, m.PartAdd(4, partition.TargetLocalStore, partition.ModeFull, 0, partition.Flags{}))
	require.NoError(t, m.Attach(4, 100))

	cap := &nopCapturer{}
	table := capture.NewDefaultTable()
	epoch, err := m.Checkpoint(4, false, table, cap, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), epoch)
	require.Equal(t, 1, cap.calls)
	require.Equal(t, 1, be.persisted)
}
