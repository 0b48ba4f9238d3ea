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

	"github.com/rcslab/aurora-sub000/record"
)

// Barrier coordinates the two-phase restore rule for session and
// process-group relationships: a process whose session/pgrp leader is
// itself (SelfSession/SelfPgrp) may restore immediately and must
// publish its live PID under its SLS-ID before anyone waiting on it
// proceeds; a follower blocks until its leader's SLS-ID has been
// published, since setsid/setpgid targeting a not-yet-existing leader
// would fail. One Barrier is shared by every process restored in the
// same partition pass.
type Barrier struct {
	mu        sync.Mutex
	cond      *sync.Cond
	resolved  map[record.ID]int // SLS-ID -> live PID, once restored
}

func NewBarrier() *Barrier {
	b := &Barrier{resolved: make(map[record.ID]int)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish records that the process identified by id has been restored
// as livePID, waking any followers blocked on WaitFor(id).
func (b *Barrier) Publish(id record.ID, livePID int) {
	b.mu.Lock()
	b.resolved[id] = livePID
	b.mu.Unlock()
	b.cond.Broadcast()
}

// WaitFor blocks until id has been published and returns its live PID.
func (b *Barrier) WaitFor(id record.ID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if pid, ok := b.resolved[id]; ok {
			return pid
		}
		b.cond.Wait()
	}
}

// RestoreOrder resolves this process's session and process-group
// leader live PIDs, blocking on the Barrier as needed, before the
// caller issues the setsid/setpgid calls themselves (process
// relationship syscalls are a hostport.ProcessHost concern this
// package does not itself own).
func RestoreOrder(b *Barrier, pd *ProcessDesc, selfPID int) (sessionLeaderPID, pgrpLeaderPID int) {
	if pd.SelfSession {
		sessionLeaderPID = selfPID
	} else {
		sessionLeaderPID = b.WaitFor(pd.SessionID)
	}
	if pd.SelfPgrp {
		pgrpLeaderPID = selfPID
	} else {
		pgrpLeaderPID = b.WaitFor(pd.PgrpID)
	}
	return sessionLeaderPID, pgrpLeaderPID
}
