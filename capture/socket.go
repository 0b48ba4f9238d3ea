/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import (
	"fmt"
	"math/rand"
	"net"

	"github.com/rcslab/aurora-sub000/record"
)

const (
	metropolisPortMin  = 1024
	metropolisPortMax  = 65535
	metropolisMaxRetry = 16
)

// bindMetropolisPort picks a random port in [metropolisPortMin,
// metropolisPortMax], probing each candidate with a throwaway
// listener to confirm it is actually free on the restore host, up to
// metropolisMaxRetry attempts.
func bindMetropolisPort() (uint16, error) {
	for i := 0; i < metropolisMaxRetry; i++ {
		port := metropolisPortMin + rand.Intn(metropolisPortMax-metropolisPortMin+1)
		ln, err := net.Listen("tcp4", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return uint16(port), nil
	}
	return 0, fmt.Errorf("capture: metropolis restore: no free port found after %d attempts", metropolisMaxRetry)
}

// SocketFamily/SocketType mirror the small set of socket shapes this
// port restores: Unix-domain and IPv4 stream/datagram.
type SocketFamily int

const (
	FamilyUnix SocketFamily = iota
	FamilyInet
)

// SocketDesc captures one socket descriptor. Unix sockets carry a
// bound-path vnode reference; IPv4 sockets carry local/peer endpoint
// info and, when connected, a peer SLS-ID so both ends of an
// intra-checkpoint connection can be re-spliced on restore.
type SocketDesc struct {
	ID       record.ID
	Family   SocketFamily
	SockType int // SOCK_STREAM / SOCK_DGRAM
	Protocol int
	Backlog  int

	// Unix
	BoundPath string

	// Inet
	LocalAddr  [4]byte
	LocalPort  uint16
	PeerAddr   [4]byte
	PeerPort   uint16
	Connected  bool
	PeerID     record.ID // nonzero if peer end is also in this checkpoint
	PeerClosed bool      // connected peer no longer present: synthesize EOF
}

func (SocketDesc) Kind() Kind { return KindSocket }

var socketHooks = Hooks{
	Supported: func(d Desc) bool { _, ok := d.(*SocketDesc); return ok },
	SLSID:     func(d Desc) record.ID { return d.(*SocketDesc).ID },
	Checkpoint: func(ctx *Context, d Desc) (record.ID, error) {
		sd := d.(*SocketDesc)
		rec := ctx.CD.GetRecord(sd.ID, record.TypeSocket)
		if err := rec.WriteUint32(uint32(sd.Family)); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(uint32(sd.SockType)); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(uint32(sd.Protocol)); err != nil {
			return 0, err
		}
		if err := rec.WriteUint32(uint32(sd.Backlog)); err != nil {
			return 0, err
		}
		if err := rec.WriteString(sd.BoundPath); err != nil {
			return 0, err
		}
		if err := rec.WriteBytes(sd.LocalAddr[:]); err != nil {
			return 0, err
		}
		if err := rec.WriteUint16(sd.LocalPort); err != nil {
			return 0, err
		}
		if err := rec.WriteBytes(sd.PeerAddr[:]); err != nil {
			return 0, err
		}
		if err := rec.WriteUint16(sd.PeerPort); err != nil {
			return 0, err
		}
		if err := rec.WriteByte(boolByte(sd.Connected)); err != nil {
			return 0, err
		}
		if err := rec.WriteUint64(uint64(sd.PeerID)); err != nil {
			return 0, err
		}
		rec.Seal()
		return sd.ID, nil
	},
	Restore: func(ctx *Context, rec *record.Record) (Desc, error) {
		r := record.NewReader(rec)
		family, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		sockType, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		proto, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		backlog, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		path, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		localAddr, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		localPort, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		peerAddr, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		peerPort, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		connectedB, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		peerID, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		sd := &SocketDesc{
			ID: rec.ID, Family: SocketFamily(family), SockType: int(sockType),
			Protocol: int(proto), Backlog: int(backlog), BoundPath: path,
			LocalPort: localPort, PeerPort: peerPort,
			Connected: connectedB != 0, PeerID: record.ID(peerID),
		}
		copy(sd.LocalAddr[:], localAddr)
		copy(sd.PeerAddr[:], peerAddr)

		listening := sd.Family == FamilyInet && sd.Backlog > 0
		switch {
		case listening && ctx.Metropolis:
			// The process was captured inside accept(): take a random
			// port instead of the captured one and report back what was
			// actually bound so userspace can learn of it.
			port, err := bindMetropolisPort()
			if err != nil {
				return nil, err
			}
			sd.LocalPort = port
			if ctx.PortReport != nil {
				ctx.PortReport(sd.ID, port)
			}
		case listening:
			// A listening socket is re-bound against its captured
			// address/port and listens again with its captured backlog;
			// clients depend on finding it at that fixed port.
		case sd.Family == FamilyInet:
			// Non-listening IPv4 socket: rebind to an ephemeral local
			// port, since the captured one may already be in use by an
			// unrelated process on the restore host and nothing depends
			// on a non-listening socket's local port being stable.
			sd.LocalPort = 0
		}

		if sd.Connected {
			if peer, ok := ctx.Restored[sd.PeerID]; ok {
				if _, isSock := peer.(*SocketDesc); isSock {
					ctx.Restored[sd.ID] = sd
					return sd, nil
				}
			}
			// Peer end isn't part of this checkpoint: the connection
			// is unrecoverable, so the socket restores as a connected
			// pair whose far side has already hung up.
			sd.PeerClosed = true
		}
		if ctx.Restored != nil {
			ctx.Restored[sd.ID] = sd
		}
		return sd, nil
	},
}
