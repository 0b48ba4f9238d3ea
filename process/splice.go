/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package process

import (
	"fmt"

	"github.com/rcslab/aurora-sub000/hostport"
	"github.com/rcslab/aurora-sub000/record"
)

// SpliceAcceptedSocket completes the restore of a process captured
// mid-accept() under a Metropolis partition. It installs the restored
// socket's SLS-ID at pd.AcceptFD in fdt (the fd table restore has
// otherwise already run) and sets the accept-blocked thread's return
// value to that fd number, so the thread resumes from accept() as if
// the kernel itself had just returned the connection. A no-op if pd
// was not captured mid-accept.
//
// threads must be the already-restored ThreadDescs for pd, in the
// same order as pd.Threads (i.e. threads[i] is the live counterpart of
// pd.Threads[i]).
func SpliceAcceptedSocket(host hostport.ProcessHost, pd *ProcessDesc, fdt *FDTableDesc, threads []*ThreadDesc) error {
	if !pd.AcceptPending {
		return nil
	}
	if fdt != nil {
		if fdt.FDs == nil {
			fdt.FDs = make(map[int]record.ID)
		}
		fdt.FDs[pd.AcceptFD] = pd.AcceptSocket
	}
	for i, tid := range pd.Threads {
		if tid != pd.AcceptThread || i >= len(threads) {
			continue
		}
		td := threads[i]
		td.Regs = td.Regs.WithReturnValue(int64(pd.AcceptFD))
		return host.SetRegs(td.TID, td.Regs)
	}
	return fmt.Errorf("process: splice accepted socket: accept thread %d not found among restored threads for pid %d", pd.AcceptThread, pd.PID)
}
