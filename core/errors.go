// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Domain errors
var (
	// ErrNoRelevantDocument indicates no indexed document matched a query.
	// It is an expected outcome, distinct from ErrExtractionFailed.
	ErrNoRelevantDocument = errors.New("no relevant document found")

	// ErrExtractionFailed indicates a document's text could not be obtained.
	// Callers may retry later.
	ErrExtractionFailed = errors.New("document extraction failed")

	// ErrIndexCorrupt indicates the persisted index could not be decoded.
	ErrIndexCorrupt = errors.New("persisted index is corrupt")

	// ErrInvalidDocument indicates a DocumentRecord failed validation.
	ErrInvalidDocument = errors.New("invalid document record")

	// ErrEmptyPath indicates the Path field is empty.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrAbsolutePath indicates the Path field is not corpus-relative.
	ErrAbsolutePath = errors.New("path must be relative to the corpus root")

	// ErrInvalidDate indicates a year or month outside the accepted range.
	ErrInvalidDate = errors.New("invalid year or month")

	// ErrInvalidConfidence indicates a fact confidence outside 0-100.
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 100")
)
