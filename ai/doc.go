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


// Package ai defines the answer-generation collaborator of docsift.
//
// The engine selects a document, extracts its text, and hands both to an
// Answerer together with the user's question. The package defines that
// interface, a null-object implementation, shared configuration, and the
// retry helper used by network-backed implementations.
//
// # Implementation Packages
//
//   - ai/openai: Answerer backed by an OpenAI-compatible chat API
//   - ai/mock: Test double for unit testing without external services
//
// NewNoopAnswerer answers with the matched document's own text, so the
// engine works with no model configured; call sites never check whether a
// model is available.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	answerer, err := openai.NewAnswerer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	text, err := answerer.Answer(ctx, "2020 purchase total?", []ai.Source{
//	    {Content: docText, SourceID: "2020/2020-05-12_purchase_request.pdf", Relevance: 36},
//	})
package ai
