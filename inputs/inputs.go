// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package inputs provides p7z.InputItem constructors for common byte
// sources: a local file, an in-memory byte slice, an arbitrary
// io.Reader, and an S3 object. None of these know anything about
// compression; they only ever produce a lazily-opened io.ReadCloser plus
// the item's metadata.
package inputs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/grailbio/base/file"

	"github.com/cosnicolaou/p7z"
)

// winFileTime converts t to 7z's own FILETIME convention: 100ns ticks
// since 1601-01-01, matching InputItem.MTime's documented units.
func winFileTime(t time.Time) uint64 {
	const epochDiff = 116444736000000000 // 1601-01-01 to 1970-01-01, in 100ns ticks
	return uint64(t.UnixNano()/100) + epochDiff
}

// FromFile returns an InputItem backed by a local (or, because
// grailbio/base/file.RegisterImplementation is a global scheme registry,
// any file-implementation-backed) path. name is used both to open the
// item and as its display Name.
func FromFile(ctx context.Context, name string) (p7z.InputItem, error) {
	info, err := file.Stat(ctx, name)
	if err != nil {
		return p7z.InputItem{}, fmt.Errorf("inputs: stat %s: %w", name, err)
	}
	return p7z.InputItem{
		Open: func() (io.ReadCloser, error) {
			f, err := file.Open(ctx, name)
			if err != nil {
				return nil, err
			}
			return readCloserFunc{Reader: f.Reader(ctx), closeFn: func() error { return f.Close(ctx) }}, nil
		},
		Name:         name,
		DeclaredSize: info.Size(),
		MTime:        winFileTime(info.ModTime()),
	}, nil
}

// FromBytes returns an InputItem over an in-memory byte slice. b is not
// copied; the caller must not mutate it until the batch that consumes it
// has completed.
func FromBytes(name string, b []byte) p7z.InputItem {
	return p7z.InputItem{
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		},
		Name:         name,
		DeclaredSize: int64(len(b)),
	}
}

// FromReader returns an InputItem that opens exactly once by returning
// rc itself. An item's Open is called exactly once per batch, so this is
// safe for any io.ReadCloser whose contents are meant to be consumed a
// single time.
func FromReader(name string, rc io.ReadCloser, declaredSize int64) p7z.InputItem {
	opened := false
	return p7z.InputItem{
		Open: func() (io.ReadCloser, error) {
			if opened {
				return nil, fmt.Errorf("inputs: %s already opened", name)
			}
			opened = true
			return rc, nil
		},
		Name:         name,
		DeclaredSize: declaredSize,
	}
}

// FromS3 returns an InputItem backed by an S3 object: its size and
// modification time come from a HeadObject at construction, and the
// bytes from a GetObject when the item is opened.
func FromS3(ctx context.Context, sess *session.Session, bucket, key string) (p7z.InputItem, error) {
	svc := s3.New(sess)
	head, err := svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return p7z.InputItem{}, fmt.Errorf("inputs: head s3://%s/%s: %w", bucket, key, err)
	}
	var size int64
	if head.ContentLength != nil {
		size = *head.ContentLength
	}
	var mtime uint64
	if head.LastModified != nil {
		mtime = winFileTime(*head.LastModified)
	}
	return p7z.InputItem{
		Open: func() (io.ReadCloser, error) {
			out, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return nil, err
			}
			return out.Body, nil
		},
		Name:         key,
		DeclaredSize: size,
		MTime:        mtime,
	}, nil
}

type readCloserFunc struct {
	io.Reader
	closeFn func() error
}

func (r readCloserFunc) Close() error { return r.closeFn() }
