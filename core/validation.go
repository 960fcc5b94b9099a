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


package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

// mimeFileTypes maps upload MIME types to the format they declare.
// A recognised MIME type wins over the filename extension.
var mimeFileTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FileTypeDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       FileTypeXLSX,
}

// ParseFileType maps a name such as "pdf" or ".PDF" to a FileType.
func ParseFileType(name string) (FileType, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	for _, ft := range FileTypes {
		if string(ft) == name {
			return ft, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, name)
}

// ValidateUpload checks an incoming file and returns its declared type.
//
// Validation rules:
//   - The type comes from the extension, overridden by a known MIME type
//   - The type must be pdf, docx or xlsx
//   - size must not exceed maxBytes (when maxBytes > 0)
//   - size must not be zero
func ValidateUpload(filename, contentType string, size, maxBytes int64) (FileType, error) {
	if strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if mimeType, ok := mimeFileTypes[contentType]; ok && string(mimeType) != ext {
		ext = string(mimeType)
	}

	fileType, err := ParseFileType(ext)
	if err != nil {
		return "", err
	}

	if maxBytes > 0 && size > maxBytes {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, size, maxBytes)
	}
	if size == 0 {
		return "", ErrEmptyFile
	}
	return fileType, nil
}

// ValidateDocument validates a Document according to domain rules.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if strings.TrimSpace(doc.Filename) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}
	if _, err := ParseFileType(string(doc.Type)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - DocumentID must be set
//   - Index must not be negative
//   - Content must not be empty
//   - Embedding must be present
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.DocumentID == "" {
		return fmt.Errorf("%w: document id is empty", ErrInvalidChunk)
	}
	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidChunk, chunk.Index)
	}
	if strings.TrimSpace(chunk.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("%w: embedding is empty", ErrInvalidChunk)
	}
	return nil
}

// ValidateChatMessage validates a ChatMessage according to domain rules.
// Role alternation is not enforced.
func ValidateChatMessage(msg *ChatMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	if msg.SessionID == "" {
		return fmt.Errorf("%w: session id is empty", ErrInvalidMessage)
	}
	if err := ValidateRole(msg.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}

// ValidateQuestion rejects blank questions.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}
	return nil
}
