//go:build linux

/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package hostport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// UnixVnodeStore is the default VnodeStore backed by real files under
// a root directory, using golang.org/x/sys/unix for sparse extent
// navigation (SEEK_HOLE/SEEK_DATA) against a sparse-write/seek-hole/
// seek-data backing filesystem.
type UnixVnodeStore struct {
	root string
}

func NewUnixVnodeStore(root string) *UnixVnodeStore {
	return &UnixVnodeStore{root: root}
}

func (s *UnixVnodeStore) OpenPath(path string, create bool) (Vnode, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0640)
	if err != nil {
		return nil, err
	}
	return newUnixVnode(f, path)
}

func (s *UnixVnodeStore) OpenInode(inode uint64) (Vnode, error) {
	path := fmt.Sprintf("%s/%d", s.root, inode)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0640)
	if err != nil {
		return nil, err
	}
	return newUnixVnode(f, path)
}

type unixVnode struct {
	mu   sync.Mutex
	f    *os.File
	path string
	ino  uint64
}

func newUnixVnode(f *os.File, path string) (*unixVnode, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		f.Close()
		return nil, err
	}
	return &unixVnode{f: f, path: path, ino: st.Ino}, nil
}

func (v *unixVnode) ReadAt(p []byte, off int64) (int, error)  { return v.f.ReadAt(p, off) }
func (v *unixVnode) WriteAt(p []byte, off int64) (int, error) { return v.f.WriteAt(p, off) }
func (v *unixVnode) Close() error                             { return v.f.Close() }
func (v *unixVnode) Inode() uint64                            { return v.ino }
func (v *unixVnode) Path() string                             { return v.path }
func (v *unixVnode) Truncate(size int64) error                { return v.f.Truncate(size) }

func (v *unixVnode) SeekHole(off int64) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, err := unix.Seek(int(v.f.Fd()), off, unix.SEEK_HOLE)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return 0, io.EOF
		}
		return 0, err
	}
	return n, nil
}

func (v *unixVnode) SeekData(off int64) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, err := unix.Seek(int(v.f.Fd()), off, unix.SEEK_DATA)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return 0, io.EOF
		}
		return 0, err
	}
	return n, nil
}

// UnixProcessHost is the default ProcessHost, implemented with
// golang.org/x/sys/unix's ptrace/signal primitives.
type UnixProcessHost struct{}

func NewUnixProcessHost() *UnixProcessHost { return &UnixProcessHost{} }

func (UnixProcessHost) Alive(pid int) (alive, exiting bool) {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true, false
	}
	if errors.Is(err, unix.ESRCH) {
		return false, false
	}
	return false, true
}

// StopAtBoundary attaches via ptrace and waits for the tracee to stop,
// approximating a single-syscall-boundary stop. A full implementation
// would single-step to the next syscall boundary; this port stops the
// whole process, which is sufficient to guarantee no process writes
// while its pages are being enumerated.
func (UnixProcessHost) StopAtBoundary(pid int) error {
	if err := unix.PtraceAttach(pid); err != nil {
		return err
	}
	var ws unix.WaitStatus
	_, err := unix.Wait4(pid, &ws, 0, nil)
	return err
}

func (UnixProcessHost) Release(pid int) error {
	return unix.PtraceDetach(pid)
}

func (UnixProcessHost) GetRegs(tid int) (RegSet, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(tid, &regs); err != nil {
		return RegSet{}, err
	}
	gp := make([]byte, unsafeSizeofRegs)
	copyRegs(gp, &regs)
	return RegSet{GP: gp}, nil
}

func (UnixProcessHost) SetRegs(tid int, r RegSet) error {
	var regs unix.PtraceRegs
	if len(r.GP) > 0 {
		restoreRegs(&regs, r.GP)
	}
	return unix.PtraceSetRegs(tid, &regs)
}

func (UnixProcessHost) Kill(pid int, sig int) error {
	return unix.Kill(pid, unix.Signal(sig))
}
