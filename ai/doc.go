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


// Package ai provides abstractions for the model services used by Docent.
//
// Docent needs two things from a model service: vector embeddings for
// chunks and questions, and text generation for answers. This package
// defines the interfaces for both so retrieval and chat logic depend on
// abstractions rather than on a particular backend.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Generator: Produces answers, whole or streamed, from prompt messages
//   - AIProvider: Aggregates AI services and checks service health
//
// # Implementation Packages
//
//   - ai/ollama: Ollama's native chat and embedding API
//   - ai/openai: Any OpenAI-compatible API
//   - ai/langchain: Shared adapters over langchaingo models and error mapping
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public provider constructors return ai.AIProvider. Mock constructors
// return concrete types so tests can inject behavior and inspect calls.
//
// # Errors
//
// Providers translate backend failures into ErrProviderConnection (service
// unreachable or timed out) and ErrProviderModel (model not pulled). Callers
// use IsUnavailable to map both to a "service unavailable" response.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := ollama.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "refund policy")
//	answer, err := provider.Generator().Generate(ctx, []ai.Message{
//	    {Role: ai.RoleUser, Content: "Summarize the refund policy."},
//	})
package ai
