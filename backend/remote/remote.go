/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package remote implements backend.Dispatcher as an archival target
// on S3: a durable off-host copy a partition's local-store or
// file-tree target can be configured to additionally archive to,
// independent of the streaming peer protocol.
package remote

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/rcslab/aurora-sub000/backend"
	"github.com/rcslab/aurora-sub000/record"
)

// Archive is an S3-backed backend.Dispatcher. Objects are keyed
// "<prefix>/part-<oid>/<epoch>/<slsid>", plus a manifest object per
// (oid, epoch).
type Archive struct {
	client *s3.S3
	bucket string
	prefix string
}

func New(sess *session.Session, bucket, prefix string) *Archive {
	return &Archive{client: s3.New(sess), bucket: bucket, prefix: prefix}
}

func (a *Archive) key(parts ...string) string {
	full := a.prefix
	for _, p := range parts {
		full += "/" + p
	}
	return full
}

func (a *Archive) Setup() error    { return nil }
func (a *Archive) Teardown() error { return nil }
func (a *Archive) Export() error   { return nil }

func (a *Archive) PartAdd(oid int) error { return nil }

func (a *Archive) SetEpoch(oid int, epoch uint64) error {
	_, err := a.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(fmt.Sprintf("part-%d", oid), "last-epoch")),
		Body:   bytes.NewReader([]byte(fmt.Sprintf("%d", epoch))),
	})
	return err
}

// Import lists every manifest object under the prefix and decodes it.
func (a *Archive) Import() ([]backend.Manifest, error) {
	var out []backend.Manifest
	err := a.client.ListObjectsV2Pages(&s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			var oid int
			var epoch uint64
			if _, err := fmt.Sscanf(*obj.Key, a.prefix+"/part-%d/%d/manifest", &oid, &epoch); err != nil {
				continue
			}
			resp, err := a.client.GetObject(&s3.GetObjectInput{Bucket: aws.String(a.bucket), Key: obj.Key})
			if err != nil {
				continue
			}
			buf := new(bytes.Buffer)
			buf.ReadFrom(resp.Body)
			resp.Body.Close()
			out = append(out, backend.Manifest{PartitionOID: oid, Epoch: epoch, RecordIDs: decodeManifest(buf.Bytes())})
		}
		return true
	})
	return out, err
}

// Persist uploads every record under the epoch's key prefix plus a
// manifest object, one PutObject call per record.
func (a *Archive) Persist(oid int, epoch uint64, cd *record.CheckpointData) error {
	base := fmt.Sprintf("part-%d/%d", oid, epoch)
	ids := make([]record.ID, 0, cd.Len())
	for _, rec := range cd.Records() {
		key := a.key(base, fmt.Sprintf("%d", rec.ID))
		if _, err := a.client.PutObject(&s3.PutObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(encodeRecord(rec)),
		}); err != nil {
			return fmt.Errorf("remote: put record %d: %w", rec.ID, err)
		}
		ids = append(ids, rec.ID)
	}
	_, err := a.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(base, "manifest")),
		Body:   bytes.NewReader(encodeManifest(ids)),
	})
	return err
}

func encodeRecord(rec *record.Record) []byte {
	var typ [4]byte
	binary.BigEndian.PutUint32(typ[:], uint32(rec.Type))
	return append(typ[:], rec.Bytes()...)
}

func encodeManifest(ids []record.ID) []byte {
	b := make([]byte, 8+8*len(ids))
	binary.BigEndian.PutUint64(b[:8], uint64(len(ids)))
	for i, id := range ids {
		binary.BigEndian.PutUint64(b[8+8*i:16+8*i], uint64(id))
	}
	return b
}

func decodeManifest(b []byte) []record.ID {
	if len(b) < 8 {
		return nil
	}
	n := binary.BigEndian.Uint64(b[:8])
	ids := make([]record.ID, 0, n)
	for i := uint64(0); i < n && 8+8*(i+1) <= uint64(len(b)); i++ {
		ids = append(ids, record.ID(binary.BigEndian.Uint64(b[8+8*i:16+8*i])))
	}
	return ids
}
