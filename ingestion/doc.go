// Package ingestion provides the extraction pipeline for corpus documents.
//
// The Pipeline type wraps a text extractor with the extracted-text cache and
// a worker pool:
//   - ExtractText serves one document, cache first
//   - ExtractBatch fans a set of documents out over the pool, each under its
//     own timeout, and merges the outcomes by document path
//
// Only successful extractions are cached. A per-document failure is reported
// through its reason code and never fails the batch.
package ingestion
