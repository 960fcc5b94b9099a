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
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every user-correctable input error.
var ErrValidation = errors.New("validation failed")

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = fmt.Errorf("%w: invalid document", ErrValidation)

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = fmt.Errorf("%w: invalid chunk", ErrValidation)

	// ErrInvalidMessage indicates a ChatMessage failed validation.
	ErrInvalidMessage = fmt.Errorf("%w: invalid chat message", ErrValidation)

	// ErrEmptyContent indicates a content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyFilename indicates a document has no filename.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = fmt.Errorf("%w: question cannot be empty", ErrValidation)

	// ErrInvalidRole indicates an invalid Role value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrUnsupportedFileType indicates an upload outside pdf, docx and xlsx.
	ErrUnsupportedFileType = fmt.Errorf("%w: unsupported file type", ErrValidation)

	// ErrFileTooLarge indicates an upload over the size limit.
	ErrFileTooLarge = fmt.Errorf("%w: file exceeds the upload size limit", ErrValidation)

	// ErrEmptyFile indicates a zero-byte upload.
	ErrEmptyFile = fmt.Errorf("%w: file is empty", ErrValidation)

	// ErrInvalidStatusTransition indicates a status change that breaks
	// uploading -> processing -> {completed, failed}.
	ErrInvalidStatusTransition = errors.New("invalid document status transition")
)
