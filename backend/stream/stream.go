/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package stream

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rcslab/aurora-sub000/backend"
	"github.com/rcslab/aurora-sub000/record"
)

// chunkSize bounds a single RECPAGES frame, mirroring the engine's
// page-oriented write-back batching (pageio.Pipeline) rather than
// shipping an entire record in one frame.
const chunkSize = 64 * 1024

// Conn wraps a websocket connection, sending/receiving one Frame per
// binary message.
type Conn struct {
	ws *websocket.Conn
}

func NewConn(ws *websocket.Conn) *Conn { return &Conn{ws: ws} }

func (c *Conn) Send(f Frame) error {
	return c.ws.WriteMessage(websocket.BinaryMessage, Encode(f))
}

func (c *Conn) Recv() (Frame, error) {
	typ, data, err := c.ws.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	if typ != websocket.BinaryMessage {
		return Frame{}, fmt.Errorf("stream: expected binary message, got type %d", typ)
	}
	return Decode(data)
}

// Sender is the send-side backend.Dispatcher: REGISTER/SetEpoch/
// PartAdd announce partition lifecycle, Persist streams a checkpoint.
type Sender struct {
	Conn *Conn
}

func NewSender(conn *Conn) *Sender { return &Sender{Conn: conn} }

func (s *Sender) Setup() error    { return nil }
func (s *Sender) Teardown() error { return s.Conn.Send(EncodeDone()) }
func (s *Sender) Export() error   { return nil }

func (s *Sender) Import() ([]backend.Manifest, error) {
	return nil, fmt.Errorf("stream: Import is a receive-side operation")
}

func (s *Sender) PartAdd(oid int) error {
	return s.Conn.Send(EncodeRegister(RegisterMsg{PartitionOID: oid}))
}

func (s *Sender) SetEpoch(oid int, epoch uint64) error {
	return s.Conn.Send(EncodeCkptStart(CkptStartMsg{PartitionOID: oid, Epoch: epoch}))
}

// Persist streams CKPTSTART -> N*(RECMETA [+ RECPAGES...]) -> CKPTDONE,
// the ordering the receiver expects for its record reassembly.
func (s *Sender) Persist(oid int, epoch uint64, cd *record.CheckpointData) error {
	if err := s.Conn.Send(EncodeCkptStart(CkptStartMsg{PartitionOID: oid, Epoch: epoch})); err != nil {
		return err
	}
	for _, rec := range cd.Records() {
		id := uuid.New()
		payload := rec.Bytes()
		if err := s.Conn.Send(EncodeRecMeta(RecMetaMsg{
			UUID: id, RecordID: uint64(rec.ID), Type: uint32(rec.Type), TotalSize: uint64(len(payload)),
		})); err != nil {
			return fmt.Errorf("stream: send RECMETA for record %d: %w", rec.ID, err)
		}
		for off := 0; off < len(payload); off += chunkSize {
			end := off + chunkSize
			if end > len(payload) {
				end = len(payload)
			}
			if err := s.Conn.Send(EncodeRecPages(RecPagesMsg{UUID: id, Offset: uint64(off), Data: payload[off:end]})); err != nil {
				return fmt.Errorf("stream: send RECPAGES for record %d: %w", rec.ID, err)
			}
		}
	}
	return s.Conn.Send(EncodeCkptDone())
}

// Receiver reconstitutes a checkpoint-data container from an inbound
// frame stream, handing it to the caller-supplied handler as if it
// were a local dump.
type Receiver struct {
	Conn *Conn
}

func NewReceiver(conn *Conn) *Receiver { return &Receiver{Conn: conn} }

// RunOnce reads frames until a CKPTDONE, assembling each record from
// its RECMETA + RECPAGES chunks, then calls handle with the finished
// checkpoint-data container.
func (r *Receiver) RunOnce(handle func(oid int, epoch uint64, cd *record.CheckpointData) error) error {
	var oid int
	var epoch uint64
	cd := record.NewCheckpointData()
	metaByUUID := make(map[uuid.UUID]RecMetaMsg)
	bufByUUID := make(map[uuid.UUID][]byte)

	for {
		f, err := r.Conn.Recv()
		if err != nil {
			return err
		}
		switch f.Type {
		case MsgRegister:
			if _, err := DecodeRegister(f); err != nil {
				return err
			}
		case MsgCkptStart:
			m, err := DecodeCkptStart(f)
			if err != nil {
				return err
			}
			oid, epoch = m.PartitionOID, m.Epoch
		case MsgRecMeta:
			m, err := DecodeRecMeta(f)
			if err != nil {
				return err
			}
			metaByUUID[m.UUID] = m
			bufByUUID[m.UUID] = make([]byte, 0, m.TotalSize)
		case MsgRecPages:
			m, err := DecodeRecPages(f)
			if err != nil {
				return err
			}
			bufByUUID[m.UUID] = append(bufByUUID[m.UUID], m.Data...)
		case MsgCkptDone:
			for id, meta := range metaByUUID {
				rec := cd.GetRecord(record.ID(meta.RecordID), record.Type(meta.Type))
				if _, err := rec.Write(bufByUUID[id]); err != nil {
					return err
				}
				rec.Seal()
			}
			return handle(oid, epoch, cd)
		case MsgDone:
			return nil
		default:
			return fmt.Errorf("stream: unexpected frame type %d", f.Type)
		}
	}
}
