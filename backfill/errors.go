package backfill

import "errors"

var (
	// ErrCatalogRequired is returned when no catalog is given.
	ErrCatalogRequired = errors.New("backfill: catalog is required")

	// ErrInvalidConfig is returned when a Config bound is out of range.
	ErrInvalidConfig = errors.New("backfill: invalid config")
)
