// Package blob resolves where calculation files live and moves them in and
// out of a blob store. Backends are in the fs, memory and s3 subpackages.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/Stoky555/ownership-graph/internal/blob/core"
	"github.com/Stoky555/ownership-graph/internal/blob/fs"
	"github.com/Stoky555/ownership-graph/internal/blob/memory"
	"github.com/Stoky555/ownership-graph/internal/blob/s3"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

type (
	Store      = core.Store
	Info       = core.Info
	Driver     = core.Driver
	PutOptions = core.PutOptions
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	Root   string
	S3     s3.Config
	// Memory is reused for the memory driver so callers can share one store.
	Memory *memory.Store
}

// Open builds the store named by opts.Driver (default fs).
func Open(ctx context.Context, opts Options) (Store, error) {
	switch core.Driver(opts.Driver) {
	case "", core.DriverFilesystem:
		return fs.New(opts.Root)
	case core.DriverS3:
		return s3.New(ctx, opts.S3)
	case core.DriverMemory:
		if opts.Memory != nil {
			return opts.Memory, nil
		}
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q (want fs, s3 or memory)", opts.Driver)
	}
}

// Location is a parsed calculation address.
type Location struct {
	Driver core.Driver
	Bucket string // s3 only
	Root   string // fs only
	Key    string
}

func (l Location) String() string {
	switch l.Driver {
	case core.DriverS3:
		return "s3://" + l.Bucket + "/" + l.Key
	case core.DriverMemory:
		return "mem://" + l.Key
	default:
		return filepath.Join(l.Root, filepath.FromSlash(l.Key))
	}
}

// ParseLocation accepts s3://bucket/key, mem://key, file://path or a plain
// file path. A plain path's directory becomes the fs root.
func ParseLocation(raw string) (Location, error) {
	if strings.TrimSpace(raw) == "" {
		return Location{}, fmt.Errorf("%w: empty location", core.ErrInvalidKey)
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return fsLocation(raw), nil
	}

	switch strings.ToLower(scheme) {
	case "s3":
		u, err := url.Parse(raw)
		if err != nil {
			return Location{}, fmt.Errorf("%w: %v", core.ErrInvalidKey, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("%w: %q needs s3://bucket/key", core.ErrInvalidKey, raw)
		}
		return Location{Driver: core.DriverS3, Bucket: u.Host, Key: key}, nil
	case "mem", "memory":
		if err := core.CheckKey(rest); err != nil {
			return Location{}, err
		}
		return Location{Driver: core.DriverMemory, Key: rest}, nil
	case "file":
		return fsLocation(rest), nil
	default:
		return Location{}, fmt.Errorf("%w: unsupported scheme %q", core.ErrInvalidKey, scheme)
	}
}

func fsLocation(path string) Location {
	return Location{
		Driver: core.DriverFilesystem,
		Root:   filepath.Dir(path),
		Key:    filepath.Base(path),
	}
}

// OpenLocation opens the store a location points into. S3 settings other than
// the bucket come from base.
func OpenLocation(ctx context.Context, loc Location, base Options) (Store, error) {
	opts := base
	opts.Driver = string(loc.Driver)
	switch loc.Driver {
	case core.DriverFilesystem:
		opts.Root = loc.Root
	case core.DriverS3:
		opts.S3.Bucket = loc.Bucket
	}
	return Open(ctx, opts)
}

// ReadCalculation fetches and parses the calculation stored at key.
func ReadCalculation(ctx context.Context, st Store, key string) (snapshot.Calculation, error) {
	_, body, err := st.Get(ctx, key)
	if err != nil {
		return snapshot.Calculation{}, err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return snapshot.Calculation{}, fmt.Errorf("reading %s: %w", key, err)
	}
	return snapshot.Parse(data)
}

// WriteCalculation stores calc at key as YAML when the key ends in .yaml or
// .yml and as indented JSON otherwise.
func WriteCalculation(ctx context.Context, st Store, key string, calc snapshot.Calculation) (Info, error) {
	var (
		data        []byte
		err         error
		contentType string
	)
	if IsYAMLKey(key) {
		data, err = snapshot.MarshalYAML(calc)
		contentType = "application/yaml"
	} else {
		data, err = snapshot.Marshal(calc)
		contentType = "application/json"
	}
	if err != nil {
		return Info{}, fmt.Errorf("encoding calculation: %w", err)
	}
	meta := map[string]string{"format-version": fmt.Sprint(snapshot.FormatVersion)}
	if name := calc.Name(); name != "" {
		meta["name"] = name
	}
	return st.Put(ctx, key, bytes.NewReader(data), PutOptions{ContentType: contentType, Metadata: meta})
}

// IsYAMLKey reports whether key names a YAML document.
func IsYAMLKey(key string) bool {
	ext := strings.ToLower(filepath.Ext(key))
	return ext == ".yaml" || ext == ".yml"
}
