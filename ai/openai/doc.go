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


// Package openai implements ai.AIProvider on top of langchaingo's OpenAI
// client, for servers that speak the OpenAI protocol (vLLM, LocalAI, the
// /v1 endpoint of Ollama). Hosts without a /v1 suffix get one during
// ai.Config normalization.
//
//	cfg := ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI), ai.WithHost("http://gpu-box:8000"))
//	provider, err := openai.NewProvider(cfg)
package openai
