/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package pageio

import (
	"context"
	"testing"

	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/hostport/mock"
	"github.com/rcslab/aurora-sub000/record"
	"github.com/stretchr/testify/require"
)

func TestBuildRunsBasic(t *testing.T) {
	runs := BuildRuns([]uint64{0, 1, 2, 5, 6}, 10)
	require.Equal(t, []Run{{Start: 0, Count: 3}, {Start: 5, Count: 2}}, runs)
}

func TestBuildRunsCapsAtMaxPages(t *testing.T) {
	runs := BuildRuns([]uint64{0, 1, 2, 3}, 2)
	require.Equal(t, []Run{{Start: 0, Count: 2}, {Start: 2, Count: 2}}, runs)
}

func TestWriteObjectRoundTrip(t *testing.T) {
	store := mock.NewVnodeStore()
	vn, err := store.OpenPath("/obj", true)
	require.NoError(t, err)

	obj := cow.NewAnonymousObject(record.ID(1), 3*4096, 1)
	obj.WritePage(0, []byte("page0"))
	obj.WritePage(2, []byte("page2"))

	p := New(4096, 4096*2, 0)
	var completed []Run
	err = p.WriteObject(context.Background(), obj, vn, false, func(_ record.ID, r Run, werr error) {
		require.NoError(t, werr)
		completed = append(completed, r)
	})
	require.NoError(t, err)
	require.Len(t, completed, 2) // page0 alone, page2 alone (not contiguous)

	buf := make([]byte, 5)
	_, err = vn.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "page0", string(buf))
}

func TestPrefaultMapMergesAdjacentRanges(t *testing.T) {
	pm := NewPrefaultMap()
	pm.Notify(record.ID(1), 0, 3)
	pm.Notify(record.ID(1), 3, 2)
	require.True(t, pm.Present(record.ID(1), 4))
	require.False(t, pm.Present(record.ID(1), 10))
}
