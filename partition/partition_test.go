/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package partition

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcslab/aurora-sub000/aurerr"
	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/hostport"
	"github.com/rcslab/aurora-sub000/hostport/mock"
	"github.com/rcslab/aurora-sub000/record"
)

func TestStateTransitionRejectsWrongSource(t *testing.T) {
	p := New(1, TargetLocalStore, ModeFull, 0, Flags{})
	err := p.SetState(Restoring, Available, false)
	require.ErrorIs(t, err, aurerr.ErrWouldBlock)
}

func TestDetachIsSticky(t *testing.T) {
	p := New(1, TargetLocalStore, ModeFull, 0, Flags{})
	p.Detach()
	err := p.SetState(Available, Checkpointing, false)
	require.ErrorIs(t, err, aurerr.ErrPartitionGone)
}

func TestSetStateSleepsUntilSourceReached(t *testing.T) {
	p := New(1, TargetLocalStore, ModeFull, 0, Flags{})
	require.NoError(t, p.SetState(Available, Restoring, false))

	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		err = p.SetState(Available, Checkpointing, true)
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.SetState(Restoring, Available, false))
	wg.Wait()
	require.NoError(t, err)
	require.Equal(t, Checkpointing, p.State())
}

func TestEpochAdvanceSerializesTickets(t *testing.T) {
	p := New(1, TargetLocalStore, ModeFull, 0, Flags{})
	t1 := p.PreAdvance()
	t2 := p.PreAdvance()
	require.Equal(t, uint64(1), t1)
	require.Equal(t, uint64(2), t2)

	done := make(chan struct{})
	go func() {
		p.Advance(t2)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("advance(t2) should not complete before advance(t1)")
	case <-time.After(20 * time.Millisecond):
	}
	p.Advance(t1)
	<-done
	require.Equal(t, uint64(2), p.Epoch())
}

type fakeGatherer struct{ host hostport.ProcessHost }

func (g *fakeGatherer) Host() hostport.ProcessHost { return g.host }
func (g *fakeGatherer) Children(pid int) []int     { return nil }

type fakeBackend struct{ persisted int }

func (b *fakeBackend) Persist(oid int, epoch uint64, cd *record.CheckpointData) error {
	b.persisted++
	return nil
}

func TestRunPassHappyPath(t *testing.T) {
	host := mock.NewProcessHost()
	host.AddProcess(100)
	p := New(7, TargetLocalStore, ModeFull, 0, Flags{})
	p.AddPID(100)

	engine := cow.NewEngine(cow.NopProtector{}, false)
	backend := &fakeBackend{}
	captured := 0
	hooks := PassHooks{
		CapturePID: func(cd *record.CheckpointData, pid int) error {
			captured++
			return nil
		},
	}

	err := p.RunPass(&fakeGatherer{host: host}, engine, backend, hooks, nil, false)
	require.NoError(t, err)
	require.Equal(t, 1, captured)
	require.Equal(t, 1, backend.persisted)
	require.Equal(t, Available, p.State())
	require.Equal(t, uint64(1), p.Epoch())
}
