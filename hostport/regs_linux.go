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
	"unsafe"

	"golang.org/x/sys/unix"
)

var unsafeSizeofRegs = int(unsafe.Sizeof(unix.PtraceRegs{}))

// copyRegs/restoreRegs marshal unix.PtraceRegs to/from a flat byte
// blob so RegSet.GP can round-trip through a record's byte buffer
// without the rest of the engine needing to know the architecture's
// register layout.
func copyRegs(dst []byte, regs *unix.PtraceRegs) {
	src := unsafe.Slice((*byte)(unsafe.Pointer(regs)), unsafeSizeofRegs)
	copy(dst, src)
}

func restoreRegs(regs *unix.PtraceRegs, src []byte) {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(regs)), unsafeSizeofRegs)
	copy(dst, src)
}

// WithReturnValue returns a copy of r with its amd64 syscall-return
// register (Rax) set to v. Used to splice a result into a thread that
// was stopped mid-syscall, e.g. handing a Metropolis-restored accept()
// its accepted fd without replaying the syscall.
func (r RegSet) WithReturnValue(v int64) RegSet {
	if len(r.GP) == 0 {
		return r
	}
	var regs unix.PtraceRegs
	restoreRegs(&regs, r.GP)
	regs.Rax = uint64(v)
	gp := make([]byte, unsafeSizeofRegs)
	copyRegs(gp, &regs)
	out := r
	out.GP = gp
	return out
}
