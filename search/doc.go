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


// Package search retrieves document content relevant to a query.
//
// Retrieval ranks the chunks of completed documents by cosine distance to the
// query embedding. Search builds document-level hits in three modes:
//   - vector: nearest chunks, one hit per document, scored
//   - keyword: case-insensitive substring match on filename or content, unscored
//   - hybrid: vector hits first, then keyword hits for documents not yet seen
//
// In hybrid mode a failing embedding provider degrades the result to keyword
// hits only.
package search
