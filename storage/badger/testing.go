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


package badger

import "github.com/poiesic/docsift/storage"

// NewMemoryStores opens an in-memory backend with an index store and a fact store.
// Caller must close the backend when done.
func NewMemoryStores() (storage.IndexStore, storage.FactStore, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	indexStore, err := NewIndexStore(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	factStore, err := NewFactStore(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	return indexStore, factStore, backend, nil
}
