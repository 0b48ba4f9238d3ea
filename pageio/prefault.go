/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package pageio

import (
	"sort"
	"sync"

	"github.com/rcslab/aurora-sub000/record"
)

// PrefaultMap tracks which (object-id, pindex-range) spans are
// currently present in memory, so the prefault/precopy/lazy-restore
// flags of can decide whether a given page needs to be
// brought in eagerly, on first fault, or not at all.
type PrefaultMap struct {
	mu     sync.Mutex
	ranges map[record.ID][][2]uint64 // inclusive [start,end] pindex ranges, sorted & merged
}

func NewPrefaultMap() *PrefaultMap {
	return &PrefaultMap{ranges: make(map[record.ID][][2]uint64)}
}

// Notify records that [start, start+count) is now present for obj,
// merging with any adjacent/overlapping range.
func (p *PrefaultMap) Notify(obj record.ID, start uint64, count int) {
	if count <= 0 {
		return
	}
	end := start + uint64(count) - 1
	p.mu.Lock()
	defer p.mu.Unlock()
	rs := append(p.ranges[obj], [2]uint64{start, end})
	sort.Slice(rs, func(i, j int) bool { return rs[i][0] < rs[j][0] })
	merged := rs[:0]
	for _, r := range rs {
		if len(merged) > 0 && r[0] <= merged[len(merged)-1][1]+1 {
			if r[1] > merged[len(merged)-1][1] {
				merged[len(merged)-1][1] = r[1]
			}
			continue
		}
		merged = append(merged, r)
	}
	p.ranges[obj] = merged
}

// Present reports whether pindex is known-present for obj.
func (p *PrefaultMap) Present(obj record.ID, pindex uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.ranges[obj] {
		if pindex >= r[0] && pindex <= r[1] {
			return true
		}
		if r[0] > pindex {
			break
		}
	}
	return false
}
