// Package archive keeps a copy of every imported CSV file in a GCS bucket,
// so a botched import can be inspected and replayed.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// uploadTimeout bounds a single archive write.
const uploadTimeout = 2 * time.Minute

// Archive stores and retrieves raw CSV files. It assumes Application Default
// Credentials are configured.
type Archive struct {
	client *storage.Client
	bucket string
}

// New creates an Archive writing to the given bucket.
func New(ctx context.Context, bucket string) (*Archive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("New: create storage client: %w", err)
	}
	return &Archive{client: client, bucket: bucket}, nil
}

// Close releases the storage client.
func (a *Archive) Close() error {
	return a.client.Close()
}

// Store writes the raw file under a dated object name and returns its
// gs:// URI.
func (a *Archive) Store(ctx context.Context, filename string, data []byte) (string, error) {
	objectName := objectNameFor(filename, time.Now().UTC())

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Store: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Store: close GCS writer: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

// Fetch downloads an archived file by its gs:// URI.
func (a *Archive) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := parseGCSURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	r, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: read GCS object: %w", err)
	}

	return data, nil
}

// objectNameFor builds a dated, collision-free object name that still ends
// in the original file name.
func objectNameFor(filename string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "import.csv"
	}
	return fmt.Sprintf("imports/%s/%s-%s", now.Format("2006/01/02"), uuid.NewString(), base)
}

// parseGCSURI splits gs://bucket/object/name into its parts.
func parseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed GCS URI: %q", uri)
	}
	return bucket, object, nil
}
