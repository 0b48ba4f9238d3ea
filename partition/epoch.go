/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package partition

// PreAdvance atomically takes the next epoch ticket and returns it.
// The caller must later call Advance with the same ticket.
func (p *Partition) PreAdvance() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextEpoch++
	return p.nextEpoch
}

// Advance blocks until epoch == ticket-1, then increments epoch to
// ticket and broadcasts, serializing durability ordering across
// overlapping asynchronous dumps while letting their non-I/O portions
// pipeline ahead of their backend writes.
func (p *Partition) Advance(ticket uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.epoch != ticket-1 {
		p.cond.Wait()
	}
	p.epoch = ticket
	p.cond.Broadcast()
}

// Epoch reports the last finalized epoch.
func (p *Partition) Epoch() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch
}

// EpochWait blocks (if sync is true) until epoch <= p.epoch, or
// otherwise immediately reports whether it has already happened.
func (p *Partition) EpochWait(epoch uint64, sync bool) (done bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !sync {
		return epoch <= p.epoch
	}
	for epoch > p.epoch {
		p.cond.Wait()
	}
	return true
}
