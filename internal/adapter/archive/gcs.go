package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS is an archive stored in a Cloud Storage bucket under prefix/<YYYY>/<DDD>/.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCS opens a storage client for bucket.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

// List iterates every object under the bucket's prefix.
func (g *GCS) List(ctx context.Context, b catalog.Bucket) ([]catalog.Listing, error) {
	prefix := objectPrefix(g.prefix, b)
	query := storage.Query{
		Projection: storage.ProjectionNoACL,
		Prefix:     prefix,
	}

	var out []catalog.Listing
	it := g.bucket.Objects(ctx, &query)
	for {
		obj, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", g.name, prefix, err)
		}
		if strings.HasSuffix(obj.Name, "/") {
			continue
		}
		out = append(out, catalog.Listing{Name: path.Base(obj.Name), Ref: obj.Name})
	}
}

// Fetch downloads the object named ref into dir.
func (g *GCS) Fetch(ctx context.Context, ref, dir string) (string, error) {
	r, err := g.bucket.Object(ref).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("open gs://%s/%s: %w", g.name, ref, err)
	}
	defer r.Close()
	return save(dir, path.Base(ref), r)
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}
