package storage

import (
	"context"
	"io"
)

// Uploader stores one call recording and returns the publicly reachable path.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}
