package archive

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrNotFound is returned when no object exists for a key.
var ErrNotFound = errors.New("archived object not found")

// Document categories.
const (
	CategoryBrief        = "briefs"
	CategoryPRD          = "prd"
	CategoryArchitecture = "architecture"
	CategoryFrontend     = "frontend-spec"
)

const gzSuffix = ".gz"

// compressible lists extensions worth gzipping.
var compressible = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".html":     true,
}

// Config holds configuration for the archive.
type Config struct {
	BaseDir       string // Root directory (default: "archive")
	CompressAbove int64  // Gzip compressible objects larger than this (default: 10KB)
}

// Store is a directory-backed object store.
type Store struct {
	baseDir       string
	compressAbove int64
}

// Object describes a stored document.
type Object struct {
	Key        string
	URL        string
	Size       int64 // Bytes on disk
	Compressed bool
	ModTime    time.Time
}

// New creates the base directory if needed and returns a Store.
func New(cfg Config) (*Store, error) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "archive"
	}
	if cfg.CompressAbove == 0 {
		cfg.CompressAbove = 10 * 1024
	}
	abs, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Store{baseDir: abs, compressAbove: cfg.CompressAbove}, nil
}

// Key builds an object key. The owner and name are reduced to a single
// safe path segment each; a random id keeps keys created in the same
// millisecond apart.
func Key(category, owner, name string, now time.Time) string {
	id, err := gonanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 8)
	if err != nil {
		id = strconv.FormatInt(now.UnixNano(), 36)
	}
	name = segment(name)
	if isVariant(name) {
		// "notes.md.gz" would read back as the compressed form of "notes.md".
		name = strings.TrimSuffix(name, gzSuffix) + "_gz"
	}
	return path.Join(category, segment(owner), fmt.Sprintf("%d-%s-%s", now.UnixMilli(), id, name))
}

func segment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// Put writes data under key, replacing any existing object.
func (s *Store) Put(key string, data []byte) (*Object, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if isVariant(key) {
		return nil, fmt.Errorf("invalid archive key %q: reserved for compressed objects", key)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}

	compressed := s.shouldCompress(key, int64(len(data)))
	if compressed {
		os.Remove(p)
		if err := writeCompressed(p+gzSuffix, data); err != nil {
			return nil, fmt.Errorf("archive %s: %w", key, err)
		}
	} else {
		if hasVariant(key) {
			os.Remove(p + gzSuffix)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return nil, fmt.Errorf("archive %s: %w", key, err)
		}
	}
	return s.Stat(key)
}

// Get reads the object at key, decompressing if needed.
func (s *Store) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if hasVariant(key) {
		if data, err := readCompressed(p + gzSuffix); err == nil {
			return data, nil
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
	}

	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// GetURL reads the object a URL returned by Put points at.
func (s *Store) GetURL(rawURL string) ([]byte, error) {
	key, err := s.KeyFromURL(rawURL)
	if err != nil {
		return nil, err
	}
	return s.Get(key)
}

// Stat describes the object at key.
func (s *Store) Stat(key string) (*Object, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	obj := &Object{Key: key, URL: s.URL(key)}
	var info fs.FileInfo
	if hasVariant(key) {
		if info, err = os.Stat(p + gzSuffix); err == nil {
			obj.Compressed = true
		}
	}
	if !obj.Compressed {
		info, err = os.Stat(p)
	}
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	obj.Size = info.Size()
	obj.ModTime = info.ModTime()
	return obj, nil
}

// Delete removes the object at key.
func (s *Store) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	gzErr := fs.ErrNotExist
	if hasVariant(key) {
		gzErr = os.Remove(p + gzSuffix)
	}
	err = os.Remove(p)
	if os.IsNotExist(err) && os.IsNotExist(gzErr) {
		return ErrNotFound
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if gzErr != nil && !os.IsNotExist(gzErr) {
		return gzErr
	}
	return nil
}

// List returns the objects whose keys start with prefix, sorted by key.
func (s *Store) List(prefix string) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(s.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		compressed := isVariant(key)
		if compressed {
			key = strings.TrimSuffix(key, gzSuffix)
		}
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Key:        key,
			URL:        s.URL(key),
			Size:       info.Size(),
			Compressed: compressed,
			ModTime:    info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// URL returns the file:// URL for key.
func (s *Store) URL(key string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.baseDir, filepath.FromSlash(key)))}
	return u.String()
}

// KeyFromURL inverts URL.
func (s *Store) KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not an archive url: %s", rawURL)
	}
	rel, err := filepath.Rel(s.baseDir, filepath.FromSlash(u.Path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("url outside archive: %s", rawURL)
	}
	return filepath.ToSlash(rel), nil
}

func (s *Store) path(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

func (s *Store) shouldCompress(key string, size int64) bool {
	return size > s.compressAbove && hasVariant(key)
}

// hasVariant reports whether key may be stored gzipped as key+".gz".
func hasVariant(key string) bool {
	return compressible[strings.ToLower(path.Ext(key))]
}

// isVariant reports whether key names the gzipped form of another key.
func isVariant(key string) bool {
	return strings.HasSuffix(key, gzSuffix) && hasVariant(strings.TrimSuffix(key, gzSuffix))
}

func writeCompressed(p string, data []byte) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return os.WriteFile(p, buf.Bytes(), 0o644)
}

func readCompressed(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
