// Package blob stores uploaded work files on local disk and serves them
// under a public URL prefix.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/progressiq/pkg/slogx"
	"github.com/google/uuid"
)

// URLPrefix is the server-relative path files are served from.
const URLPrefix = "/uploads/"

var (
	ErrTooLarge    = errors.New("blob: file too large")
	ErrEmpty       = errors.New("blob: empty file")
	ErrInvalidName = errors.New("blob: invalid file name")
)

// Object describes a stored file.
type Object struct {
	Name string // on-disk name, <uuid><ext>
	URL  string // URLPrefix + Name
	Size int64
}

// Local keeps files in a single flat directory.
type Local struct {
	dir      string
	maxBytes int64
}

// NewLocal creates dir if needed. maxBytes <= 0 disables the size limit.
func NewLocal(dir string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("blob: create %s: %w", dir, err)
	}
	return &Local{dir: dir, maxBytes: maxBytes}, nil
}

func (l *Local) MaxBytes() int64 { return l.maxBytes }

// Ping reports whether the upload directory is still present.
func (l *Local) Ping() error {
	fi, err := os.Stat(l.dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("blob: %s is not a directory", l.dir)
	}
	return nil
}

// Save writes r under a fresh random name that keeps the extension of
// originalName. The file only appears once fully written.
func (l *Local) Save(ctx context.Context, originalName string, r io.Reader) (Object, error) {
	name := uuid.NewString() + sanitizeExt(originalName)

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("blob: temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name()) // no-op after rename
	}()

	src := r
	if l.maxBytes > 0 {
		src = io.LimitReader(r, l.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		return Object{}, fmt.Errorf("blob: write: %w", err)
	}
	if l.maxBytes > 0 && n > l.maxBytes {
		return Object{}, ErrTooLarge
	}
	if n == 0 {
		return Object{}, ErrEmpty
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("blob: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, name)); err != nil {
		return Object{}, fmt.Errorf("blob: rename: %w", err)
	}

	slogx.FromContext(ctx).Debug("blob saved",
		slog.String("name", name),
		slog.Int64("size", n),
	)
	return Object{Name: name, URL: URLPrefix + name, Size: n}, nil
}

// Delete removes the file a URL returned by Save points at. Missing files
// are not an error.
func (l *Local) Delete(ctx context.Context, fileURL string) error {
	name, err := nameFromURL(fileURL)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(l.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob: delete %s: %w", name, err)
	}

	slogx.FromContext(ctx).Debug("blob deleted", slog.String("name", name))
	return nil
}

// Handler serves stored files. Directory listings and dot files are refused.
func (l *Local) Handler() http.Handler {
	fs := http.FileServer(http.Dir(l.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, URLPrefix)
		if !validName(name) {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/" + name
		fs.ServeHTTP(w, r2)
	})
}

func nameFromURL(fileURL string) (string, error) {
	name, ok := strings.CutPrefix(fileURL, URLPrefix)
	if !ok || !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, fileURL)
	}
	return name, nil
}

func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && name == filepath.Base(name)
}

// sanitizeExt keeps a short alphanumeric extension, lower-cased.
func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
