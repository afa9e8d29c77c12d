// Package fs implements a blob store over a local directory. Keys are
// slash-separated paths relative to the root, so stored calculations are
// ordinary files that other tools can open.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Stoky555/ownership-graph/internal/blob/core"
)

// Store implements core.Store on the local filesystem. Put metadata other
// than the content type is not persisted.
type Store struct {
	root string
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Root returns the directory keys are resolved against.
func (s *Store) Root() string { return s.root }

func (s *Store) pathFor(key string) (string, error) {
	if err := core.CheckKey(key); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	return filepath.Join(s.root, clean), nil
}

// Put writes through a temp file in the target directory and renames it into
// place, so readers never observe a partial file.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return core.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		_ = tmp.Close()
		return core.Info{}, fmt.Errorf("writing blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return core.Info{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return core.Info{}, err
	}

	info, err := s.stat(key, path)
	if err != nil {
		return core.Info{}, err
	}
	info.ETag = hex.EncodeToString(h.Sum(nil))
	if opts.ContentType != "" {
		info.ContentType = opts.ContentType
	}
	info.Metadata = core.CloneMetadata(opts.Metadata)
	return info, nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	info, err := s.stat(key, path)
	if err != nil {
		return core.Info{}, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return core.Info{}, nil, notFound(key, err)
	}
	return info, f, nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	info, err := s.stat(key, path)
	if err != nil {
		return core.Info{}, err
	}
	etag, err := fileSHA256(path)
	if err != nil {
		return core.Info{}, err
	}
	info.ETag = etag
	return info, nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List walks the root, skipping hidden directories and temp files.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	infos := []core.Info{}
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := s.stat(key, path)
		if err != nil {
			return err
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) stat(key, path string) (core.Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return core.Info{}, notFound(key, err)
	}
	if st.IsDir() {
		return core.Info{}, fmt.Errorf("%w: %s is a directory", core.ErrInvalidKey, key)
	}
	return core.Info{
		Key:          key,
		Size:         st.Size(),
		ContentType:  ContentType(key),
		LastModified: st.ModTime().UTC(),
	}, nil
}

// ContentType guesses a MIME type from the key's extension.
func ContentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case "":
		return ""
	default:
		return mime.TypeByExtension(filepath.Ext(key))
	}
}

func notFound(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return err
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
