// Package blobstore adapts gocloud.dev blob buckets to the object-store and
// catalog-repository contracts of the domain layer.
package blobstore

import (
	"context"
	"io"
	"strings"

	"roastery/config"
	"roastery/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // local development buckets
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
	_ "gocloud.dev/blob/s3blob"   // s3:// buckets
	"gocloud.dev/gcerrors"
)

// NewBucket opens the configured bucket URL and closes it on shutdown.
func NewBucket(lc fx.Lifecycle, ctx context.Context, cfg *config.Config) (*blob.Bucket, error) {
	bucket, err := blob.OpenBucket(ctx, cfg.Blob.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "open bucket %s", cfg.Blob.BucketURL)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return errors.WithStack(bucket.Close())
		},
	})

	return bucket, nil
}

type bucketStore struct {
	bucket        *blob.Bucket
	publicBaseURL string
}

// NewObjectStore wraps a bucket as the domain ObjectStore.
func NewObjectStore(bucket *blob.Bucket, cfg *config.Config) service.ObjectStore {
	return &bucketStore{
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(cfg.Blob.PublicBaseURL, "/"),
	}
}

func (s *bucketStore) Put(ctx context.Context, key string, data []byte, opts service.PutOptions) (string, error) {
	if !opts.AllowOverwrite {
		exists, err := s.bucket.Exists(ctx, key)
		if err != nil {
			return "", errors.Wrapf(err, "check existence of %s", key)
		}
		if exists {
			return "", errors.Errorf("object %s already exists and overwrite is not allowed", key)
		}
	}

	writerOpts := &blob.WriterOptions{ContentType: opts.ContentType}
	if err := s.bucket.WriteAll(ctx, key, data, writerOpts); err != nil {
		return "", errors.Wrapf(err, "write object %s", key)
	}

	return s.publicBaseURL + "/" + key, nil
}

func (s *bucketStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, errors.Wrapf(service.ErrObjectNotFound, "object %s", key)
		}

		return nil, errors.Wrapf(err, "read object %s", key)
	}

	return data, nil
}

func (s *bucketStore) List(ctx context.Context, prefix string) ([]service.ObjectInfo, error) {
	var objects []service.ObjectInfo

	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "list objects under %q", prefix)
		}
		if obj.IsDir {
			continue
		}

		objects = append(objects, service.ObjectInfo{
			Key:        obj.Key,
			Size:       obj.Size,
			UploadedAt: obj.ModTime,
		})
	}

	return objects, nil
}

func (s *bucketStore) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "check existence of %s", key)
	}

	return exists, nil
}
