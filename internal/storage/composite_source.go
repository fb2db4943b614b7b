package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/salesdash-io/salesdash/internal/ingestion"
)

// CompositeSource routes primary resources to one source and secondary
// resources to another.
type CompositeSource struct {
	primary   ingestion.Source
	secondary ingestion.Source
}

func NewCompositeSource(primary, secondary ingestion.Source) *CompositeSource {
	return &CompositeSource{primary: primary, secondary: secondary}
}

// Fetch implements ingestion.Source.
func (c *CompositeSource) Fetch(ctx context.Context, resource ingestion.Resource) ([]ingestion.Record, error) {
	if resource.Tag() == ingestion.Primary {
		return c.primary.Fetch(ctx, resource)
	}

	return c.secondary.Fetch(ctx, resource)
}

// OpenSource builds the source described by cfg. The returned closer releases
// the database connection, if one was opened, and is never nil.
func OpenSource(cfg *Config) (ingestion.Source, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nopCloser{}, err
	}

	files, err := NewFileSource(cfg.DataDir, cfg.SourceFormat)
	if err != nil {
		return nil, nopCloser{}, err
	}

	if !cfg.UsesDatabase() {
		return files, nopCloser{}, nil
	}

	conn, err := NewConnection(cfg)
	if err != nil {
		return nil, nopCloser{}, fmt.Errorf("%w: %w", ingestion.ErrSourceUnavailable, err)
	}

	warehouse, err := NewSQLSource(conn)
	if err != nil {
		_ = conn.Close()

		return nil, nopCloser{}, err
	}

	return NewCompositeSource(warehouse, files), conn, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
