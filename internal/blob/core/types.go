// Package core defines the blob storage abstraction shared by the backends.
package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Driver identifies a blob storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests, server scratch space)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"sizeBytes"`
	ContentType  string            `json:"contentType,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"lastModified"`
}

// Store is a minimal S3-like key/value store for calculation files.
type Store interface {
	// Put writes the blob at key, replacing any existing content.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the blob and its metadata. Missing keys return ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes a blob, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs whose key has prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	// ErrNotFound is returned by Get and Head for missing keys.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned for empty or path-escaping keys.
	ErrInvalidKey = errors.New("invalid blob key")
)

// IsNotFoundErr returns true if err is or wraps ErrNotFound.
func IsNotFoundErr(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// CheckKey rejects keys that are blank, absolute, or contain "..".
func CheckKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return errors.Join(ErrInvalidKey, errors.New("empty key"))
	case strings.HasPrefix(key, "/"):
		return errors.Join(ErrInvalidKey, errors.New("absolute key "+key))
	case strings.Contains(key, ".."):
		return errors.Join(ErrInvalidKey, errors.New("key "+key+" contains '..'"))
	}
	return nil
}

// CloneMetadata copies a metadata map; nil stays nil.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
