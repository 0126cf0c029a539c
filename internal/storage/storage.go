// Package storage uploads objects to an S3-compatible store.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
)

// ErrUnavailable is returned while the upload circuit is open.
var ErrUnavailable = errors.New("object storage unavailable")

// Store writes an object under key and returns where it can be fetched.
// Writing an existing key overwrites it.
type Store interface {
	Upload(ctx context.Context, r io.Reader, size int64, key, contentType string) (*url.URL, error)
}
