package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCS writes objects with a does-not-exist precondition.
type GCS struct {
	client    *storage.Client
	bucket    string
	prefix    string
	newWriter func(ctx context.Context, object string) io.WriteCloser
}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	handle := client.Bucket(bucket)
	return &GCS{
		client: client,
		bucket: bucket,
		prefix: prefix,
		newWriter: func(ctx context.Context, object string) io.WriteCloser {
			return handle.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
		},
	}, nil
}

func (g *GCS) Upload(ctx context.Context, localPath, name string) (string, error) {
	for v := 1; v <= maxVersions; v++ {
		object := path.Join(g.prefix, VersionedName(name, v))
		err := g.write(ctx, localPath, object)
		if isPreconditionFailed(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("write gs://%s/%s: %w", g.bucket, object, err)
		}
		return fmt.Sprintf("gs://%s/%s", g.bucket, object), nil
	}
	return "", fmt.Errorf("no free object name for %s after %d versions", name, maxVersions)
}

func (g *GCS) write(ctx context.Context, localPath, object string) error {
	in, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer in.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.newWriter(ctx, object)
	if _, err := io.Copy(w, in); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *GCS) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
