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


// Package search ranks indexed documents against free-form queries.
//
// The Selector applies the query's hard year and month filter first, then
// scores each remaining document with additive signals computed from its
// filename:
//   - Exact term matches, weighted by term length
//   - Near matches by bounded edit distance
//   - Substring containment between longer tokens
//   - Indexed keywords present in the raw query
//   - Shared tokens between query and filename
//   - Document-type phrases present in both
//   - Drafter or department facts named in the query
//
// Documents are ordered by score, then by shorter filename, then by path,
// so equal queries over equal indexes always select the same document.
package search
