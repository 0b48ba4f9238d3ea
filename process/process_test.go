/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package process

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/hostport"
	"github.com/rcslab/aurora-sub000/hostport/mock"
	"github.com/rcslab/aurora-sub000/record"
)

func TestThreadRoundTrip(t *testing.T) {
	host := mock.NewProcessHost()
	host.AddProcess(100)
	regs := hostport.RegSet{GP: []byte{1, 2, 3}, FP: []byte{4, 5}, FSBase: 0xdead, SignalMask: 0x1}
	require.NoError(t, host.SetRegs(100, regs))

	td, err := CaptureThread(host, 100)
	require.NoError(t, err)

	rec := record.NewRecord(1, record.TypeThread)
	require.NoError(t, td.WriteTo(rec))
	rec.Seal()

	r := record.NewReader(rec)
	got, err := ReadThread(r)
	require.NoError(t, err)
	require.Equal(t, td.Regs.FSBase, got.Regs.FSBase)
	require.Equal(t, td.SigMask, got.SigMask)
}

func TestCaptureVMSpaceShadowsAnonymousEntries(t *testing.T) {
	engine := cow.NewEngine(cow.NopProtector{}, false)
	cd := record.NewCheckpointData()
	obj := cow.NewAnonymousObject(10, 8192, 1)
	engine.Register(obj)
	entry := &cow.Entry{Start: 0, End: 8192, Object: obj, ObjectKind: cow.KindAnonymousDefault, Prot: cow.ProtRead | cow.ProtWrite}

	vs, err := CaptureVMSpace(engine, cd, 1, []*cow.Entry{entry}, false)
	require.NoError(t, err)
	require.Len(t, vs.Entries, 1)
	require.NotEqual(t, record.ID(0), vs.Entries[0].ObjectID)
	require.NotEqual(t, obj.ID, vs.Entries[0].ObjectID) // shadowed, not the original

	rec := record.NewRecord(2, record.TypeVMSpace)
	require.NoError(t, vs.WriteTo(rec))
	rec.Seal()
	got, err := ReadVMSpace(record.NewReader(rec))
	require.NoError(t, err)
	require.Equal(t, vs.Entries[0].ObjectID, got.Entries[0].ObjectID)
}

func TestSpliceAcceptedSocket(t *testing.T) {
	host := mock.NewProcessHost()
	host.AddProcess(200)
	require.NoError(t, host.SetRegs(200, hostport.RegSet{GP: make([]byte, 27*8)}))

	td, err := CaptureThread(host, 200)
	require.NoError(t, err)
	td.TID = 200

	pd := &ProcessDesc{
		PID:           200,
		Threads:       []record.ID{55},
		AcceptPending: true,
		AcceptThread:  55,
		AcceptSocket:  record.ID(9001),
		AcceptFD:      7,
	}
	fdt := &FDTableDesc{FDs: map[int]record.ID{}}

	require.NoError(t, SpliceAcceptedSocket(host, pd, fdt, []*ThreadDesc{td}))
	require.Equal(t, record.ID(9001), fdt.FDs[7])
}

func TestSpliceAcceptedSocketNoop(t *testing.T) {
	pd := &ProcessDesc{PID: 1}
	require.NoError(t, SpliceAcceptedSocket(nil, pd, nil, nil))
}

func TestBarrierFollowerWaitsForLeader(t *testing.T) {
	b := NewBarrier()
	leaderID := record.ID(5)
	var wg sync.WaitGroup
	var followerPID int
	wg.Add(1)
	go func() {
		defer wg.Done()
		followerPID = b.WaitFor(leaderID)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Publish(leaderID, 4242)
	wg.Wait()
	require.Equal(t, 4242, followerPID)
}
