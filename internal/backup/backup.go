// Package backup stores exported roster snapshots in a file tree or an
// S3-compatible bucket.
package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tgawarplanet/roster/internal/snapshot"
)

// Sink receives encoded snapshots under a slash-separated key.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Key is the object key of an export: roster/<tenant-id>/<export-id>.json.
func Key(doc *snapshot.Document) string {
	return path.Join("roster", strconv.FormatUint(doc.Tenant.ID, 10), doc.ExportID+".json")
}

// Save encodes doc as JSON and stores it in sink. It returns the key used.
func Save(ctx context.Context, sink Sink, doc *snapshot.Document) (string, error) {
	if doc.ExportID == "" {
		return "", fmt.Errorf("save backup: document has no export id")
	}
	data, err := snapshot.Encode(doc, snapshot.FormatJSON)
	if err != nil {
		return "", err
	}
	key := Key(doc)
	if err := sink.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("save backup %s: %w", key, err)
	}
	return key, nil
}

// FileSink writes each key as a file below a root directory.
type FileSink struct {
	root string
}

// NewFileSink returns a sink rooted at dir. The directory is created on
// first write.
func NewFileSink(dir string) *FileSink {
	return &FileSink{root: dir}
}

// Root returns the directory keys are written below.
func (s *FileSink) Root() string {
	return s.root
}

// Put writes data to <root>/<key>, replacing an existing file atomically.
func (s *FileSink) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := path.Clean("/" + key)
	if clean == "/" || strings.HasSuffix(key, "/") {
		return fmt.Errorf("invalid backup key %q", key)
	}
	target := filepath.Join(s.root, filepath.FromSlash(clean))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".backup-*")
	if err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}
