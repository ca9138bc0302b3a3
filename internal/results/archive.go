/*
Copyright 2025 The windco Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package results

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/afero"

	"github.com/windco-project/windco/internal/logging"
)

// maxPutTries bounds the upload attempts per object.
const maxPutTries = 3

// ArchiveOptions configure the object-store upload of a finished run.
type ArchiveOptions struct {
	// Endpoint is the store address, host:port or a full URL.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
	Bucket          string
	// Prefix is prepended to every object key.
	Prefix string
}

// ObjectStore is the object-store surface the archiver needs. The
// production implementation wraps the minio SDK.
type ObjectStore interface {
	// EnsureBucket creates the bucket unless it already exists.
	EnsureBucket(ctx context.Context, bucket string) error
	// PutObject uploads one object.
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// RunArchiver uploads a finished run directory.
type RunArchiver interface {
	ArchiveRun(ctx context.Context, runDir, runID string) (int, error)
}

// ArchiveError wraps an object-store failure with a retry class.
// Transport conditions are retryable; configuration and permission
// problems are not.
type ArchiveError struct {
	Retryable bool
	Err       error
}

func (e *ArchiveError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("archive: %v (retryable)", e.Err)
	}
	return fmt.Sprintf("archive: %v", e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// IsRetryable reports whether an archive failure is worth retrying.
func IsRetryable(err error) bool {
	var ae *ArchiveError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// Archiver uploads run directories to one bucket. Retryable upload
// failures back off and retry per object; fatal ones end the archive.
type Archiver struct {
	fs    afero.Fs
	store ObjectStore
	opts  ArchiveOptions

	newBackOff func() backoff.BackOff
}

var _ RunArchiver = (*Archiver)(nil)

// NewArchiver builds an archiver against a live object store.
func NewArchiver(fs afero.Fs, opts ArchiveOptions) (*Archiver, error) {
	if opts.Bucket == "" {
		return nil, &ArchiveError{Err: fmt.Errorf("archive bucket is required")}
	}
	store, err := newS3Store(opts)
	if err != nil {
		return nil, err
	}
	return &Archiver{
		fs:    fs,
		store: store,
		opts:  opts,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}, nil
}

// ArchiveRun uploads every file under runDir to the bucket, keyed
// <prefix>/<run-id>/<relative path>. It returns the object count.
func (a *Archiver) ArchiveRun(ctx context.Context, runDir, runID string) (int, error) {
	log := logging.FromContext(ctx)
	if err := a.store.EnsureBucket(ctx, a.opts.Bucket); err != nil {
		return 0, fmt.Errorf("archive run %s: %w", runID, err)
	}

	uploaded := 0
	walkErr := afero.Walk(a.fs, runDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(runDir, p)
		if err != nil {
			return err
		}
		key := path.Join(a.opts.Prefix, runID, filepath.ToSlash(rel))
		data, err := afero.ReadFile(a.fs, p)
		if err != nil {
			return err
		}

		op := func() (struct{}, error) {
			putErr := a.store.PutObject(ctx, a.opts.Bucket, key, data, contentTypeFor(p))
			if putErr != nil && !IsRetryable(putErr) {
				return struct{}{}, backoff.Permanent(putErr)
			}
			return struct{}{}, putErr
		}
		if _, err := backoff.Retry(ctx, op,
			backoff.WithBackOff(a.newBackOff()),
			backoff.WithMaxTries(maxPutTries),
		); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		uploaded++
		log.V(logging.TRACE).Info("archived object", "key", key, "bytes", len(data))
		return nil
	})
	if walkErr != nil {
		return uploaded, fmt.Errorf("archive run %s: %w", runID, walkErr)
	}
	log.Info("run archived", "run", runID, "bucket", a.opts.Bucket, "objects", uploaded)
	return uploaded, nil
}

func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/x-yaml"
	default:
		return "application/octet-stream"
	}
}

// s3Store implements ObjectStore over the minio SDK.
type s3Store struct {
	client *minio.Client
	region string
}

func newS3Store(opts ArchiveOptions) (*s3Store, error) {
	if opts.Endpoint == "" {
		return nil, &ArchiveError{Err: fmt.Errorf("archive endpoint is required")}
	}
	endpoint := opts.Endpoint
	useSSL := opts.UseSSL
	if u, err := url.Parse(opts.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: useSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, &ArchiveError{Err: fmt.Errorf("archive client: %w", err)}
	}
	return &s3Store{client: client, region: opts.Region}, nil
}

func (s *s3Store) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return classifyS3Error(err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return classifyS3Error(err)
	}
	return nil
}

func (s *s3Store) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return classifyS3Error(err)
	}
	return nil
}

// classifyS3Error sorts minio failures into the two retry classes.
// Structured error responses decide first; the string fallback catches
// transport errors that never reached the store.
func classifyS3Error(err error) error {
	if err == nil {
		return nil
	}
	if resp := minio.ToErrorResponse(err); resp.Code != "" {
		switch resp.Code {
		case "NoSuchBucket", "InvalidBucketName", "AccessDenied",
			"InvalidAccessKeyId", "SignatureDoesNotMatch":
			return &ArchiveError{Retryable: false, Err: err}
		case "SlowDown", "InternalError":
			return &ArchiveError{Retryable: true, Err: err}
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"),
		strings.Contains(msg, "invalid access key"),
		strings.Contains(msg, "signature"):
		return &ArchiveError{Retryable: false, Err: err}
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "unreachable"):
		return &ArchiveError{Retryable: true, Err: err}
	}
	return &ArchiveError{Retryable: true, Err: err}
}
