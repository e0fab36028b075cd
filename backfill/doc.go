// Package backfill fills in the business facts of every indexed document
// and writes them to the fact store.
//
// Facts are normally extracted lazily, the first time a document is used
// to answer a question. A backfill walks the whole index in batches so
// fact-based ranking has data for documents that were never asked about.
// Documents whose text cannot be extracted are skipped and counted.
package backfill
