package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Source is one file in a batch. Open is called at the file's turn in the
// loop, never ahead of it, so a cancelled batch touches no bytes it does not
// need.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// LocalSource reads a file from disk.
type LocalSource struct {
	Path string
}

func (s LocalSource) Name() string { return filepath.Base(s.Path) }

func (s LocalSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	return f, nil
}

// GCSSource reads an object from Google Cloud Storage. Anonymous access is
// used for public buckets when no credentials are wanted.
type GCSSource struct {
	Bucket    string
	Object    string
	Anonymous bool
}

func (s GCSSource) Name() string { return path.Base(s.Object) }

func (s GCSSource) Open(ctx context.Context) (io.ReadCloser, error) {
	var opts []option.ClientOption
	if s.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	r, err := client.Bucket(s.Bucket).Object(s.Object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.Bucket, s.Object, err)
	}
	return &gcsReader{ReadCloser: r, client: client}, nil
}

// gcsReader closes the storage client together with the object reader.
type gcsReader struct {
	io.ReadCloser
	client *storage.Client
}

func (r *gcsReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// ParseSource turns a CLI argument into a Source: "gs://bucket/path" becomes
// a GCSSource, anything else a local path.
func ParseSource(arg string, anonymousGCS bool) (Source, error) {
	if strings.HasPrefix(arg, "gs://") {
		trimmed := strings.TrimPrefix(arg, "gs://")
		parts := strings.SplitN(trimmed, "/", 2)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid GCS URI %q", arg)
		}
		return GCSSource{Bucket: parts[0], Object: parts[1], Anonymous: anonymousGCS}, nil
	}
	return LocalSource{Path: arg}, nil
}
