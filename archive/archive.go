// Package archive keeps saved CSV exports and printed receipts in blob
// storage, on the local disk or in S3.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/shop"
	"github.com/hairizuan-noorazman/repair-desk/view"
)

var (
	// ErrObjectNotFound is returned when a requested object does not exist.
	ErrObjectNotFound = errors.New("archived object not found")

	// ErrInvalidKey is returned for empty keys or keys escaping the archive root.
	ErrInvalidKey = errors.New("invalid archive key")
)

const (
	exportsPrefix  = "exports/"
	receiptsPrefix = "receipts/"
)

// Object describes one archived file.
type Object struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Backend stores opaque blobs under slash-separated keys.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Config selects and configures a backend.
type Config struct {
	Type    string
	BaseDir string
	Bucket  string
	Region  string
}

// NewBackend creates the backend named by cfg.Type.
func NewBackend(cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Type) {
	case "local", "":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("base_dir is required for local storage")
		}
		return NewLocalBackend(cfg.BaseDir)

	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("bucket is required for S3 storage")
		}
		if cfg.Region == "" {
			return nil, fmt.Errorf("region is required for S3 storage")
		}
		backend, err := NewS3Backend(context.Background(), cfg.Bucket, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// cleanKey normalizes key and rejects traversal or absolute keys.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// Archive files exports and receipts under fixed prefixes.
type Archive struct {
	backend Backend
	shop    shop.Profile
	logger  logger.Logger
}

// New creates an archive over backend.
func New(backend Backend, profile shop.Profile, log logger.Logger) *Archive {
	return &Archive{backend: backend, shop: profile, logger: log}
}

// SaveExport writes jobs as CSV to exports/repair_jobs_<date>.csv. A second
// export on the same day replaces the first.
func (a *Archive) SaveExport(ctx context.Context, now time.Time, jobs []*job.Job) (*Object, error) {
	var buf bytes.Buffer
	if err := view.WriteCSV(&buf, jobs); err != nil {
		return nil, err
	}

	name := view.ExportFilename(now)
	obj := &Object{Key: exportsPrefix + name, Name: name, Size: int64(buf.Len()), UpdatedAt: now}
	if err := a.backend.Put(ctx, obj.Key, &buf, "text/csv; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("failed to archive export: %w", err)
	}

	a.logger.Info(ctx, "export archived", map[string]interface{}{
		"key":  obj.Key,
		"rows": len(jobs),
	})
	return obj, nil
}

// ListExports returns archived exports, newest name first.
func (a *Archive) ListExports(ctx context.Context) ([]Object, error) {
	objects, err := a.backend.List(ctx, exportsPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Name > objects[j].Name
	})
	return objects, nil
}

// OpenExport streams an archived export by file name.
func (a *Archive) OpenExport(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || !strings.HasSuffix(name, ".csv") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	return a.backend.Get(ctx, exportsPrefix+name)
}

// SaveReceipt renders and stores the receipt page for j.
func (a *Archive) SaveReceipt(ctx context.Context, j *job.Job) (*Object, error) {
	var buf bytes.Buffer
	if err := view.RenderReceipt(&buf, a.shop, j); err != nil {
		return nil, err
	}

	name := view.ReceiptFilename(j)
	obj := &Object{Key: receiptsPrefix + name, Name: name, Size: int64(buf.Len()), UpdatedAt: time.Now().UTC()}
	if err := a.backend.Put(ctx, obj.Key, &buf, "text/html; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("failed to archive receipt: %w", err)
	}

	a.logger.Info(ctx, "receipt archived", map[string]interface{}{
		"key":        obj.Key,
		"job_number": j.Number,
	})
	return obj, nil
}

// OpenReceipt streams an archived receipt for j.
func (a *Archive) OpenReceipt(ctx context.Context, j *job.Job) (io.ReadCloser, error) {
	return a.backend.Get(ctx, receiptsPrefix+view.ReceiptFilename(j))
}
