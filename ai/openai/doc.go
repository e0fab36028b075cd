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


// Package openai provides an ai.Answerer backed by OpenAI-compatible APIs.
//
// The langchaingo client talks to OpenAI or to compatible local services
// such as Ollama, LocalAI, or vLLM.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),  // /v1 added automatically
//	    ai.WithModel("qwen2.5:7b"),
//	)
//
//	answerer, err := openai.NewAnswerer(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, err := answerer.Answer(ctx, question, sources)
package openai
