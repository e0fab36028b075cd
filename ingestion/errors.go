package ingestion

import "errors"

var (
	// ErrExtractorRequired is returned when a text extractor is not provided.
	ErrExtractorRequired = errors.New("text extractor required")

	// ErrTextCacheRequired is returned when a text cache is not provided.
	ErrTextCacheRequired = errors.New("text cache required")
)
