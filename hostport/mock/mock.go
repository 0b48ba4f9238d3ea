/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package mock provides in-memory doubles for the hostport interfaces,
// used by every package's tests so the engine's algorithms can be
// exercised deterministically without a real kernel underneath.
package mock

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/rcslab/aurora-sub000/hostport"
)

// VnodeStore is an in-memory hostport.VnodeStore keyed by path or
// synthetic inode.
type VnodeStore struct {
	mu     sync.Mutex
	byPath map[string]*vnodeData
	byIno  map[uint64]*vnodeData
	nextI  uint64
}

func NewVnodeStore() *VnodeStore {
	return &VnodeStore{
		byPath: make(map[string]*vnodeData),
		byIno:  make(map[uint64]*vnodeData),
		nextI:  1,
	}
}

type vnodeData struct {
	mu   sync.Mutex
	ino  uint64
	path string
	buf  []byte
}

func (s *VnodeStore) OpenPath(path string, create bool) (hostport.Vnode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byPath[path]
	if !ok {
		if !create {
			return nil, fmt.Errorf("mock vnode: %s not found", path)
		}
		d = &vnodeData{ino: s.nextI, path: path}
		s.nextI++
		s.byPath[path] = d
		s.byIno[d.ino] = d
	}
	return &vnode{d: d}, nil
}

func (s *VnodeStore) OpenInode(inode uint64) (hostport.Vnode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byIno[inode]
	if !ok {
		d = &vnodeData{ino: inode, path: fmt.Sprintf("<inode:%d>", inode)}
		s.byIno[inode] = d
	}
	return &vnode{d: d}, nil
}

type vnode struct{ d *vnodeData }

func (v *vnode) ReadAt(p []byte, off int64) (int, error) {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	if off >= int64(len(v.d.buf)) {
		return 0, io.EOF
	}
	n := copy(p, v.d.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (v *vnode) WriteAt(p []byte, off int64) (int, error) {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(v.d.buf)) {
		grown := make([]byte, end)
		copy(grown, v.d.buf)
		v.d.buf = grown
	}
	copy(v.d.buf[off:], p)
	return len(p), nil
}

func (v *vnode) Close() error      { return nil }
func (v *vnode) Inode() uint64     { return v.d.ino }
func (v *vnode) Path() string      { return v.d.path }
func (v *vnode) Truncate(n int64) error {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	if n <= int64(len(v.d.buf)) {
		v.d.buf = v.d.buf[:n]
	} else {
		grown := make([]byte, n)
		copy(grown, v.d.buf)
		v.d.buf = grown
	}
	return nil
}

// SeekHole/SeekData approximate sparse navigation over the in-memory
// buffer by treating runs of zero bytes as holes, matching the
// semantics a real sparse file would expose for an all-zero page.
func (v *vnode) SeekHole(off int64) (int64, error) {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	if off >= int64(len(v.d.buf)) {
		return 0, io.EOF
	}
	// the hole begins at the first zero byte at or after off; the end
	// of file counts as a hole, as it does for a real sparse file
	idx := bytes.IndexByte(v.d.buf[off:], 0)
	if idx < 0 {
		return int64(len(v.d.buf)), nil
	}
	return off + int64(idx), nil
}

func (v *vnode) SeekData(off int64) (int64, error) {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	if off >= int64(len(v.d.buf)) {
		return 0, io.EOF
	}
	idx := bytes.IndexFunc(v.d.buf[off:], func(r rune) bool { return r != 0 })
	if idx < 0 {
		return 0, io.EOF
	}
	return off + int64(idx), nil
}

// ProcessHost is an in-memory hostport.ProcessHost simulating a set
// of cooperating processes without any real OS process underneath,
// so partition/process tests can drive stop/release/register capture
// deterministically.
type ProcessHost struct {
	mu      sync.Mutex
	alive   map[int]bool
	exiting map[int]bool
	stopped map[int]bool
	regs    map[int]hostport.RegSet
}

func NewProcessHost() *ProcessHost {
	return &ProcessHost{
		alive:   make(map[int]bool),
		exiting: make(map[int]bool),
		stopped: make(map[int]bool),
		regs:    make(map[int]hostport.RegSet),
	}
}

func (p *ProcessHost) AddProcess(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive[pid] = true
}

func (p *ProcessHost) MarkExiting(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exiting[pid] = true
}

func (p *ProcessHost) MarkDead(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.alive, pid)
}

func (p *ProcessHost) Alive(pid int) (alive, exiting bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive[pid], p.exiting[pid]
}

func (p *ProcessHost) StopAtBoundary(pid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped[pid] = true
	return nil
}

func (p *ProcessHost) Release(pid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stopped, pid)
	return nil
}

func (p *ProcessHost) SetRegs(tid int, r hostport.RegSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regs[tid] = r
	return nil
}

func (p *ProcessHost) GetRegs(tid int) (hostport.RegSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.regs[tid], nil
}

func (p *ProcessHost) Kill(pid int, sig int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.alive, pid)
	return nil
}

// PagerHooks is an in-memory hostport.PagerHooks double.
type PagerHooks struct {
	mu    sync.Mutex
	hooks map[uint64]hostport.PagerReadFunc
}

func NewPagerHooks() *PagerHooks {
	return &PagerHooks{hooks: make(map[uint64]hostport.PagerReadFunc)}
}

func (h *PagerHooks) RegisterObject(objectID uint64, read hostport.PagerReadFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks[objectID] = read
	return nil
}

func (h *PagerHooks) UnregisterObject(objectID uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.hooks, objectID)
	return nil
}

func (h *PagerHooks) Read(objectID, pindex uint64, before, after int) ([]byte, error) {
	h.mu.Lock()
	fn, ok := h.hooks[objectID]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("mock pager: object %d not registered", objectID)
	}
	return fn(objectID, pindex, before, after)
}
