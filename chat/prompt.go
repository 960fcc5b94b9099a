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


package chat

import (
	"fmt"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
)

// NoContextMarker stands in for the reference block when nothing was retrieved.
const NoContextMarker = "No relevant documents were found."

// titleLength is the number of question runes kept as a session title.
const titleLength = 50

const contextSeparator = "\n\n---\n\n"

const defaultSystemPrompt = `You are an assistant that answers questions about the organization's internal documents.

Rules:
1. Answer only from the reference documents provided with the question.
2. If the documents do not contain the answer, do not guess. Say that the provided documents do not contain the information.
3. Always answer in %s.
4. Start with a short summary, then give details where needed.
5. Use numbered lists, bullets or tables when they make the answer clearer.
6. Name the documents you used at the end of the answer.`

// systemPrompt renders the default instruction for language.
func systemPrompt(language string) string {
	return fmt.Sprintf(defaultSystemPrompt, language)
}

// buildContext renders retrieved chunks as the reference block and collects
// one source per document, keeping the first (closest) chunk's score.
func buildContext(chunks []*core.RetrievedChunk) (string, []core.Source) {
	sources := []core.Source{}
	if len(chunks) == 0 {
		return NoContextMarker, sources
	}

	parts := make([]string, 0, len(chunks))
	seen := make(map[core.ID]bool)
	for _, rc := range chunks {
		parts = append(parts, fmt.Sprintf("[%s - chunk %d]\n%s", rc.Filename, rc.Chunk.Index+1, rc.Chunk.Content))

		if !seen[rc.Chunk.DocumentID] {
			seen[rc.Chunk.DocumentID] = true
			sources = append(sources, core.Source{
				DocumentID: rc.Chunk.DocumentID,
				Filename:   rc.Filename,
				Score:      rc.Score,
			})
		}
	}
	return strings.Join(parts, contextSeparator), sources
}

// buildPrompt assembles the instruction, the history in chronological order
// and the final user turn.
func buildPrompt(instruction string, history []*core.ChatMessage, context, question string) []ai.Message {
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: instruction})
	for _, msg := range history {
		role := ai.RoleUser
		if msg.Role == core.RoleAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: msg.Content})
	}
	messages = append(messages, ai.Message{
		Role:    ai.RoleUser,
		Content: fmt.Sprintf("Reference documents:\n%s\n\nQuestion: %s\n\nAnswer based on the documents above.", context, question),
	})
	return messages
}

// nextTitle returns the title a session takes after question, or "" to keep
// the current one. Only sessions still carrying the default title are renamed.
func nextTitle(current, question string) string {
	if current != core.DefaultSessionTitle {
		return ""
	}
	runes := []rune(question)
	if len(runes) <= titleLength {
		return question
	}
	return string(runes[:titleLength]) + "..."
}
