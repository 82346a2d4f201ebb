package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const jsonContentType = "application/json"

var keyPattern = regexp.MustCompile(`^[0-9a-f-]{36}(-[a-z0-9-]+)?\.json$`)

// ExportedFile describes a file written to export storage
type ExportedFile struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

// ExportService writes JSON documents to the configured storage driver
type ExportService struct {
	Driver    StorageDriver
	URLExpiry time.Duration
}

func NewExportService(driver StorageDriver) *ExportService {
	return &ExportService{Driver: driver, URLExpiry: time.Hour}
}

// ExportJSON encodes v and stores it under a fresh key. label becomes part of the key
// so downloads are recognisable, e.g. "laporan-2026-10-18".
func (s *ExportService) ExportJSON(ctx context.Context, label string, v any) (*ExportedFile, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	key := uuid.New().String()
	if label != "" {
		key += "-" + label
	}
	key += ".json"
	if !ValidKey(key) {
		return nil, fmt.Errorf("invalid export label %q", label)
	}

	size := int64(buf.Len())
	if err := s.Driver.Save(ctx, key, &buf, jsonContentType); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, s.URLExpiry)
	if err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned export", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	slog.InfoContext(ctx, "export written", "key", key, "size_bytes", size)
	return &ExportedFile{Key: key, URL: url, SizeBytes: size}, nil
}

// Download retrieves an export and its MIME type
func (s *ExportService) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !ValidKey(key) {
		return nil, "", fmt.Errorf("invalid export key %q", key)
	}
	return s.Driver.Get(ctx, key)
}

// ValidKey reports whether key has the shape ExportJSON produces. It keeps request
// supplied keys from escaping the storage root.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
