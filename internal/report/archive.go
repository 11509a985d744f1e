package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Archiver persists finished reports. The in-memory implementation exists
// for tests; production uses GCS.
type Archiver interface {
	// Archive stores the report and returns a URI it can be fetched from.
	Archive(ctx context.Context, r *Report) (string, error)
}

// GCSArchiver writes reports as JSON objects into a GCS bucket.
// It assumes Application Default Credentials are configured.
type GCSArchiver struct {
	bucket string
}

// NewGCSArchiver creates an archiver writing into the given bucket.
func NewGCSArchiver(bucket string) *GCSArchiver {
	return &GCSArchiver{bucket: bucket}
}

// Archive implements the Archiver interface. Object names embed the user,
// the evaluation date and a random suffix so repeated runs never collide.
func (a *GCSArchiver) Archive(ctx context.Context, r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("Archive: marshal report: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("Archive: create storage client: %w", err)
	}
	defer client.Close()

	objectName := ObjectName(r.UserID, r.EvaluatedAt)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

// Fetch downloads an archived report from the given GCS URI.
func (a *GCSArchiver) Fetch(ctx context.Context, gcsURI string) (*Report, error) {
	bucketName, objectPath, err := splitGCSURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("Fetch: unmarshal report: %w", err)
	}

	return &r, nil
}

// ObjectName builds the archive object path for a report.
// e.g. reports/u1/2025-06-15/report-<uuid>.json
func ObjectName(userID string, evaluatedAt time.Time) string {
	return fmt.Sprintf("reports/%s/%s/report-%s.json",
		userID, evaluatedAt.Format("2006-01-02"), uuid.NewString())
}

func splitGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
