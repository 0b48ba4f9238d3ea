/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package stream implements backend.Dispatcher as a streaming peer:
// a websocket-framed REGISTER/CKPTSTART/RECMETA/RECPAGES/CKPTDONE/DONE
// protocol. Each protocol message is sent as one websocket binary
// frame holding an explicit [4-byte type][4-byte length][payload]
// header, an explicit length-prefixed frame rather than a fixed-size
// union since message payloads vary widely in size between RECMETA
// and RECPAGES.
package stream

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// MsgType tags a protocol frame.
type MsgType uint32

const (
	MsgRegister MsgType = iota
	MsgCkptStart
	MsgRecMeta
	MsgRecPages
	MsgCkptDone
	MsgDone
)

// Frame is one decoded protocol message: type plus raw payload.
type Frame struct {
	Type    MsgType
	Payload []byte
}

// Encode serializes a Frame as [type u32][len u32][payload].
func Encode(f Frame) []byte {
	buf := make([]byte, 8+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(f.Type))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(f.Payload)))
	copy(buf[8:], f.Payload)
	return buf
}

// Decode is the inverse of Encode.
func Decode(b []byte) (Frame, error) {
	if len(b) < 8 {
		return Frame{}, fmt.Errorf("stream: short frame (%d bytes)", len(b))
	}
	typ := MsgType(binary.BigEndian.Uint32(b[0:4]))
	n := binary.BigEndian.Uint32(b[4:8])
	if int(n) != len(b)-8 {
		return Frame{}, fmt.Errorf("stream: frame length mismatch: header says %d, got %d", n, len(b)-8)
	}
	return Frame{Type: typ, Payload: b[8:]}, nil
}

// RegisterMsg announces a new partition to the receiving peer.
type RegisterMsg struct {
	PartitionOID int
}

func EncodeRegister(m RegisterMsg) Frame {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(m.PartitionOID))
	return Frame{Type: MsgRegister, Payload: b}
}

func DecodeRegister(f Frame) (RegisterMsg, error) {
	if f.Type != MsgRegister || len(f.Payload) != 4 {
		return RegisterMsg{}, fmt.Errorf("stream: malformed REGISTER")
	}
	return RegisterMsg{PartitionOID: int(binary.BigEndian.Uint32(f.Payload))}, nil
}

// CkptStartMsg begins a checkpoint for a given epoch.
type CkptStartMsg struct {
	PartitionOID int
	Epoch        uint64
}

func EncodeCkptStart(m CkptStartMsg) Frame {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:4], uint32(m.PartitionOID))
	binary.BigEndian.PutUint64(b[4:12], m.Epoch)
	return Frame{Type: MsgCkptStart, Payload: b}
}

func DecodeCkptStart(f Frame) (CkptStartMsg, error) {
	if f.Type != MsgCkptStart || len(f.Payload) != 12 {
		return CkptStartMsg{}, fmt.Errorf("stream: malformed CKPTSTART")
	}
	return CkptStartMsg{
		PartitionOID: int(binary.BigEndian.Uint32(f.Payload[0:4])),
		Epoch:        binary.BigEndian.Uint64(f.Payload[4:12]),
	}, nil
}

// RecMetaMsg announces a forthcoming record, identified by a UUID so
// the receiver can correlate subsequent RECPAGES frames to it without
// needing the sender's SLS-ID namespace.
type RecMetaMsg struct {
	UUID      uuid.UUID
	RecordID  uint64
	Type      uint32
	TotalSize uint64
}

func EncodeRecMeta(m RecMetaMsg) Frame {
	b := make([]byte, 16+8+4+8)
	copy(b[0:16], m.UUID[:])
	binary.BigEndian.PutUint64(b[16:24], m.RecordID)
	binary.BigEndian.PutUint32(b[24:28], m.Type)
	binary.BigEndian.PutUint64(b[28:36], m.TotalSize)
	return Frame{Type: MsgRecMeta, Payload: b}
}

func DecodeRecMeta(f Frame) (RecMetaMsg, error) {
	if f.Type != MsgRecMeta || len(f.Payload) != 36 {
		return RecMetaMsg{}, fmt.Errorf("stream: malformed RECMETA")
	}
	var m RecMetaMsg
	copy(m.UUID[:], f.Payload[0:16])
	m.RecordID = binary.BigEndian.Uint64(f.Payload[16:24])
	m.Type = binary.BigEndian.Uint32(f.Payload[24:28])
	m.TotalSize = binary.BigEndian.Uint64(f.Payload[28:36])
	return m, nil
}

// RecPagesMsg carries one chunk of a record's byte payload at the
// given byte offset; len is implicit in the frame header.
type RecPagesMsg struct {
	UUID   uuid.UUID
	Offset uint64
	Data   []byte
}

func EncodeRecPages(m RecPagesMsg) Frame {
	b := make([]byte, 16+8+len(m.Data))
	copy(b[0:16], m.UUID[:])
	binary.BigEndian.PutUint64(b[16:24], m.Offset)
	copy(b[24:], m.Data)
	return Frame{Type: MsgRecPages, Payload: b}
}

func DecodeRecPages(f Frame) (RecPagesMsg, error) {
	if f.Type != MsgRecPages || len(f.Payload) < 24 {
		return RecPagesMsg{}, fmt.Errorf("stream: malformed RECPAGES")
	}
	var m RecPagesMsg
	copy(m.UUID[:], f.Payload[0:16])
	m.Offset = binary.BigEndian.Uint64(f.Payload[16:24])
	m.Data = f.Payload[24:]
	return m, nil
}

func EncodeCkptDone() Frame { return Frame{Type: MsgCkptDone} }
func EncodeDone() Frame     { return Frame{Type: MsgDone} }
