package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidKey is returned for keys that would resolve outside the base directory.
var ErrInvalidKey = errors.New("invalid storage key")

// LocalFSDriver stores exports on local disk under a two-level hashed layout.
type LocalFSDriver struct {
	BaseDir   string
	PublicURL string
}

// NewLocalFSDriver creates the base directory if needed.
// publicURL is prefixed to keys when generating download links (e.g. /api/v1/reports/exports).
func NewLocalFSDriver(baseDir, publicURL string) (*LocalFSDriver, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &LocalFSDriver{BaseDir: baseDir, PublicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (d *LocalFSDriver) pathFor(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if len(key) < 4 {
		return filepath.Join(d.BaseDir, key), nil
	}
	return filepath.Join(d.BaseDir, key[0:2], key[2:4], key), nil
}

func (d *LocalFSDriver) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	fullPath, err := d.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create hashed directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to close export: %w", err)
	}

	// content type sidecar
	if err := os.WriteFile(fullPath+".meta", []byte(contentType), 0o644); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (d *LocalFSDriver) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	fullPath, err := d.pathFor(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, "", err
	}

	contentType := "application/octet-stream"
	if meta, err := os.ReadFile(fullPath + ".meta"); err == nil {
		contentType = string(meta)
	}
	return f, contentType, nil
}

func (d *LocalFSDriver) Delete(ctx context.Context, key string) error {
	fullPath, err := d.pathFor(key)
	if err != nil {
		return err
	}
	_ = os.Remove(fullPath + ".meta")
	err = os.Remove(fullPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GenerateURL ignores expires; local links are served through the API and never expire.
func (d *LocalFSDriver) GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if _, err := d.pathFor(key); err != nil {
		return "", err
	}
	if d.PublicURL == "" {
		return key, nil
	}
	return fmt.Sprintf("%s/%s", d.PublicURL, key), nil
}
