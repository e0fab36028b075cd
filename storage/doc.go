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


// Package storage provides the persistence abstractions for docsift.
//
// Two stores are defined:
//
//   - IndexStore: holds the serialized index snapshot written after each
//     successful rebuild and read back on cold start
//   - FactStore: the secondary structured-fact store keyed by filename
//
// # Constructor Return Type Pattern
//
// Public constructors in the implementation packages return the interface
// type so callers never couple to a specific backend:
//
//	store, err := badger.NewIndexStore(backend)  // returns storage.IndexStore
//	facts, err := sqlite.NewFactStore(path)      // returns storage.FactStore
//
// # Implementations
//
//   - storage/badger: index snapshot stored under a single key in BadgerDB
//   - storage/sqlite: fact store on a SQLite file (pure Go driver)
//   - NopFactStore: null object used when no fact store is configured
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
