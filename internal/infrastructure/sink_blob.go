package infrastructure

import (
	"context"
	"fmt"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/yourusername/mediapull/internal/domain"
)

// BucketSinkOpener writes downloads as objects of a gocloud blob bucket.
// Objects become visible once the sink is closed.
type BucketSinkOpener struct {
	bucket        *blob.Bucket
	prefix        string
	maxNameLength int
}

// OpenBucketSinkOpener opens the bucket at url (file://, mem://, s3://, gs://)
func OpenBucketSinkOpener(ctx context.Context, url, prefix string, maxNameLength int) (*BucketSinkOpener, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", url, err)
	}
	return NewBucketSinkOpener(bucket, prefix, maxNameLength), nil
}

// NewBucketSinkOpener wraps an already opened bucket
func NewBucketSinkOpener(bucket *blob.Bucket, prefix string, maxNameLength int) *BucketSinkOpener {
	return &BucketSinkOpener{
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
		maxNameLength: maxNameLength,
	}
}

// Open starts a new object writer for desc
func (o *BucketSinkOpener) Open(desc domain.MediaFileDescriptor) (domain.Sink, error) {
	key := SanitizeFileName(desc.FileName, desc.FileIndex, o.maxNameLength)
	if o.prefix != "" {
		key = path.Join(o.prefix, key)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w, err := o.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		Metadata: map[string]string{
			"file_index": fmt.Sprintf("%d", desc.FileIndex),
			"position":   desc.Position.String(),
		},
	})
	if err != nil {
		cancel()
		return nil, err
	}
	return &bucketSink{writer: w, cancel: cancel, key: key}, nil
}

// Close closes the underlying bucket
func (o *BucketSinkOpener) Close() error {
	return o.bucket.Close()
}

type bucketSink struct {
	writer *blob.Writer
	cancel context.CancelFunc
	key    string
}

func (s *bucketSink) Write(p []byte) (int, error) {
	return s.writer.Write(p)
}

func (s *bucketSink) Close() error {
	defer s.cancel()
	return s.writer.Close()
}

func (s *bucketSink) Location() string {
	return s.key
}
