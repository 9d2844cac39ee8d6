// Package objectstore is the opaque blob-store boundary used for evidence
// files. The core never inspects blob contents; it stores bytes under a path
// and keeps the resulting public URL.
package objectstore

import (
	"context"
	"io"
)

// Handle identifies a stored object.
type Handle struct {
	Bucket string
	Key    string
}

// Store writes blobs and resolves their public URLs.
type Store interface {
	Put(ctx context.Context, path string, body io.Reader) (Handle, error)
	PublicURL(h Handle) string
}
