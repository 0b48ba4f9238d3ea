/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddFindDel(t *testing.T) {
	m := New(4)
	require.NoError(t, m.Add(1, 100))
	require.ErrorIs(t, m.Add(1, 200), ErrExists)

	v, err := m.Find(1)
	require.NoError(t, err)
	require.Equal(t, uint64(100), v)

	m.Del(1)
	_, err = m.Find(1)
	require.ErrorIs(t, err, ErrNotFound)

	// deleting an absent key is not an error
	m.Del(1)
}

func TestSetOverwrites(t *testing.T) {
	m := New(1)
	m.Set(5, 1)
	m.Set(5, 2)
	v, err := m.Find(5)
	require.NoError(t, err)
	require.Equal(t, uint64(2), v)
}

func TestPopEmpty(t *testing.T) {
	m := New(8)
	_, _, err := m.Pop()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPopDrainsAll(t *testing.T) {
	m := New(4)
	want := map[uint64]uint64{1: 10, 2: 20, 3: 30, 17: 170}
	for k, v := range want {
		require.NoError(t, m.Add(k, v))
	}
	got := map[uint64]uint64{}
	for {
		k, v, err := m.Pop()
		if err != nil {
			require.ErrorIs(t, err, ErrNotFound)
			break
		}
		got[k] = v
	}
	require.Equal(t, want, got)
	require.Equal(t, 0, m.Len())
}

func TestIteration(t *testing.T) {
	m := New(4)
	want := map[uint64]uint64{1: 10, 2: 20, 3: 30, 100: 1000}
	for k, v := range want {
		require.NoError(t, m.Add(k, v))
	}
	got := map[uint64]uint64{}
	it := m.IterStart()
	for {
		k, v, ok := it.IterCont()
		if !ok {
			break
		}
		got[k] = v
	}
	require.Equal(t, want, got)
}

func TestBucketCountRoundsUpToPowerOfTwo(t *testing.T) {
	m := New(10)
	require.Equal(t, uint64(15), m.mask) // 16 buckets -> mask 15
}
