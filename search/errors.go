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


package search

import (
	"errors"
	"fmt"

	"github.com/poiesic/docsift/core"
)

var (
	// ErrCatalogRequired is returned when no document catalog is provided.
	ErrCatalogRequired = errors.New("document catalog required")

	// ErrInvalidWeights is returned for negative weights or an out-of-range
	// fuzzy threshold.
	ErrInvalidWeights = errors.New("invalid scoring weights")

	// ErrNoMatch is returned by FindBestMatch when no document scores above
	// zero. It wraps core.ErrNoRelevantDocument.
	ErrNoMatch = fmt.Errorf("%w: no document scored above zero", core.ErrNoRelevantDocument)
)
