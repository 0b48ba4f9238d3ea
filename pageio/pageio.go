/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package pageio implements the page I/O pipeline: grouping
// contiguous dirty pages into buffered I/Os, driving read-ahead, and
// honoring in-flight markers so concurrent faults block correctly.
package pageio

import (
	"context"
	"sort"
	"sync"

	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/hostport"
	"github.com/rcslab/aurora-sub000/record"
)

// Run is a maximal contiguous range of page indices destined for one
// buffered I/O.
type Run struct {
	Start uint64
	Count int
}

// BuildRuns groups sorted, deduplicated page indices into runs,
// capping each run at maxPages: a maximal run of logically contiguous
// pages capped at a configurable contig_limit.
func BuildRuns(pages []uint64, maxPages int) []Run {
	if maxPages <= 0 {
		maxPages = 1
	}
	sorted := append([]uint64(nil), pages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var runs []Run
	for i := 0; i < len(sorted); {
		start := sorted[i]
		count := 1
		j := i + 1
		for j < len(sorted) && sorted[j] == sorted[j-1]+1 && count < maxPages {
			count++
			j++
		}
		runs = append(runs, Run{Start: start, Count: count})
		i = j
	}
	return runs
}

// objKey pairs an object ID with a page index for the in-flight map.
type objKey struct {
	obj record.ID
	idx uint64
}

// Pipeline drives buffered reads/writes for anonymous object pages,
// honoring ordering guarantee: "a page marked
// swap-in-progress is immutable from the capturing side until the
// pager clears the flag".
type Pipeline struct {
	pageSize    uint64
	contigLimit int

	mu        sync.Mutex
	cond      *sync.Cond
	inFlight  map[objKey]bool

	prefault *PrefaultMap

	sem chan struct{} // bounds concurrent async buffers (async-slos)
}

// New builds a Pipeline. concurrency bounds the number of in-flight
// buffered I/Os when async mode is used;
// concurrency<=0 means synchronous-only.
func New(pageSize uint64, contigLimit int, concurrency int) *Pipeline {
	p := &Pipeline{
		pageSize:    pageSize,
		contigLimit: contigLimit,
		inFlight:    make(map[objKey]bool),
		prefault:    NewPrefaultMap(),
	}
	p.cond = sync.NewCond(&p.mu)
	if concurrency > 0 {
		p.sem = make(chan struct{}, concurrency)
	}
	return p
}

func (p *Pipeline) maxPagesPerBuffer() int {
	if p.pageSize == 0 {
		return 1
	}
	n := p.contigLimit / int(p.pageSize)
	if n < 1 {
		n = 1
	}
	return n
}

// markInFlight sets swap-in-progress for every page in the run,
// blocking until any page already marked clears first (VPO_SWAPSLEEP,
// suspension points).
func (p *Pipeline) markInFlight(obj record.ID, run Run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		clear := true
		for i := uint64(0); i < uint64(run.Count); i++ {
			if p.inFlight[objKey{obj, run.Start + i}] {
				clear = false
				break
			}
		}
		if clear {
			break
		}
		p.cond.Wait()
	}
	for i := uint64(0); i < uint64(run.Count); i++ {
		p.inFlight[objKey{obj, run.Start + i}] = true
	}
}

// clearInFlight clears swap-in-progress and wakes every waiter once a
// run's I/O has completed.
func (p *Pipeline) clearInFlight(obj record.ID, run Run) {
	p.mu.Lock()
	for i := uint64(0); i < uint64(run.Count); i++ {
		delete(p.inFlight, objKey{obj, run.Start + i})
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

// CompletionFunc is invoked once per finished buffer with the object,
// the run, and the I/O error (nil on success). The pipeline keeps no
// dirty state of its own; any accounting is up to the callback.
type CompletionFunc func(objectID record.ID, run Run, err error)

// WriteObject walks o's resident pages, batches them into runs capped
// at contig_limit, and hands each to vn for persistence. async
// dispatches each run to the bounded worker pool; otherwise runs are
// written synchronously in page order.
func (p *Pipeline) WriteObject(ctx context.Context, o *cow.Object, vn hostport.Vnode, async bool, onDone CompletionFunc) error {
	pages := o.ResidentPages()
	runs := BuildRuns(pages, p.maxPagesPerBuffer())

	write := func(r Run) error {
		p.markInFlight(o.ID, r)
		var err error
		for i := 0; i < r.Count; i++ {
			pindex := r.Start + uint64(i)
			data, _ := o.ReadPage(pindex)
			if _, werr := vn.WriteAt(data, int64(pindex)*int64(p.pageSize)); werr != nil {
				err = werr
				break
			}
		}
		p.clearInFlight(o.ID, r)
		p.prefault.Notify(o.ID, r.Start, r.Count)
		if onDone != nil {
			onDone(o.ID, r, err)
		}
		return err
	}

	if !async || p.sem == nil {
		for _, r := range runs {
			if err := write(r); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(runs))
	for _, r := range runs {
		r := r
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-p.sem }()
			if err := write(r); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadObject performs the symmetric read path: grab busy pages, mark
// swap-in-progress, read from vn, clipping read-ahead/read-behind so
// the total stays within one buffer.
func (p *Pipeline) ReadObject(o *cow.Object, vn hostport.Vnode, pindex uint64, ahead, behind int) error {
	maxPages := p.maxPagesPerBuffer()
	if ahead+behind+1 > maxPages {
		total := maxPages - 1
		if total < 0 {
			total = 0
		}
		// keep as much read-behind as fits and clip read-ahead to the
		// rest; read-behind is clipped only when it alone exceeds the
		// buffer, so the total stays within one buffer.
		if behind > total {
			behind = total
			ahead = 0
		} else {
			ahead = total - behind
		}
	}
	start := pindex
	if behind > uint64ToInt(start) {
		start = 0
	} else {
		start = pindex - uint64(behind)
	}
	count := behind + ahead + 1

	run := Run{Start: start, Count: count}
	p.markInFlight(o.ID, run)
	defer p.clearInFlight(o.ID, run)

	buf := make([]byte, p.pageSize)
	for i := 0; i < count; i++ {
		idx := start + uint64(i)
		if _, err := vn.ReadAt(buf, int64(idx)*int64(p.pageSize)); err != nil {
			return err
		}
		o.WritePage(idx, buf)
	}
	p.prefault.Notify(o.ID, start, count)
	return nil
}

func uint64ToInt(u uint64) int {
	if u > 1<<62 {
		return 1 << 62
	}
	return int(u)
}
