// Package datasource defines how input bytes are obtained, independent of
// where they live.
package datasource

import (
	"context"
	"io"
)

// Source opens a readable stream. Callers must close it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
