/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package partition

import (
	"fmt"

	"github.com/rcslab/aurora-sub000/cow"
	"github.com/rcslab/aurora-sub000/record"
)

// MemSnap captures a single caller-specified anonymous VM entry after
// verifying it has exactly one reference. Unlike RunPass it never touches the partition's process
// set or state machine beyond the epoch protocol, since it captures
// one entry in one already-known process rather than gathering/
// stopping a working set.
func (p *Partition) MemSnap(engine *cow.Engine, pid int, entry *cow.Entry, async bool, do func(ticket uint64, cd *record.CheckpointData) error) (uint64, error) {
	if entry.Object == nil || entry.Object.RefCount() != 1 {
		return 0, fmt.Errorf("partition: memsnap requires ref_count==1 on the target entry")
	}

	ticket := p.PreAdvance()
	cd := record.NewCheckpointData()

	run := func() error {
		if err := engine.ShadowSegment(cd, pid, entry); err != nil {
			return err
		}
		if do != nil {
			if err := do(ticket, cd); err != nil {
				return err
			}
		}
		p.Advance(ticket)
		return nil
	}

	if async && p.Flags.AsyncSnap {
		go func() {
			_ = run()
		}()
		return ticket, nil
	}
	return ticket, run()
}
