// Package index builds the metadata index of a document corpus.
//
// An Indexer scans the corpus, obtains each document's text through a
// TextSource, and derives a DocumentRecord from the filename (date token,
// title, keywords) and from the text (excerpt, business facts). The finished
// Index is immutable; a rebuild publishes a new one atomically and readers
// keep the previous view until then.
//
// Built indexes are persisted through a storage.IndexStore and loaded on the
// next start instead of re-extracting the corpus. A corrupt snapshot is
// treated as missing.
package index
