/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package stream

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFrameEncodeDecodeRoundTrip(t *testing.T) {
	f := EncodeCkptStart(CkptStartMsg{PartitionOID: 7, Epoch: 99})
	raw := Encode(f)
	got, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, MsgCkptStart, got.Type)

	m, err := DecodeCkptStart(got)
	require.NoError(t, err)
	require.Equal(t, 7, m.PartitionOID)
	require.Equal(t, uint64(99), m.Epoch)
}

func TestRecMetaRoundTrip(t *testing.T) {
	id := uuid.New()
	f := EncodeRecMeta(RecMetaMsg{UUID: id, RecordID: 42, Type: 5, TotalSize: 1024})
	got, err := DecodeRecMeta(f)
	require.NoError(t, err)
	require.Equal(t, id, got.UUID)
	require.Equal(t, uint64(42), got.RecordID)
	require.Equal(t, uint64(1024), got.TotalSize)
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	raw := Encode(Frame{Type: MsgDone, Payload: []byte("abc")})
	raw = raw[:len(raw)-1] // truncate payload without fixing header
	_, err := Decode(raw)
	require.Error(t, err)
}
