// Package parser defines the contracts of the two input collaborators of a
// conversion: the descriptor translator and the raw table reader.
package parser

import (
	"context"

	"pdsreader/internal/records"
	"pdsreader/internal/schema"
)

// Translator turns a format descriptor file into an input schema.
type Translator interface {
	Translate(path string) (schema.Schema, error)
}

// Reader reads a data file laid out by s into a columnar table whose columns
// match the schema fields in order.
type Reader interface {
	Read(ctx context.Context, path string, s schema.Schema) (*records.Table, error)
}
