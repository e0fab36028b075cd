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


package index

import "errors"

var (
	// ErrScannerRequired is returned when a corpus scanner is not provided.
	ErrScannerRequired = errors.New("corpus scanner required")

	// ErrPipelineRequired is returned when an extraction pipeline is not provided.
	ErrPipelineRequired = errors.New("extraction pipeline required")

	// ErrStoreRequired is returned when an index store is not provided.
	ErrStoreRequired = errors.New("index store required")

	// ErrNotBuilt is returned by operations that need an index before one
	// has been built or loaded.
	ErrNotBuilt = errors.New("index has not been built")

	// ErrDocumentNotFound is returned for a path that is not in the index.
	ErrDocumentNotFound = errors.New("document not in index")
)
