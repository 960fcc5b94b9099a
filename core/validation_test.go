package core

import (
	"errors"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	const limit = 100 * 1024 * 1024

	tests := []struct {
		name        string
		filename    string
		contentType string
		size        int64
		want        FileType
		wantErr     error
	}{
		{
			name:     "pdf by extension",
			filename: "report.pdf",
			size:     10,
			want:     FileTypePDF,
		},
		{
			name:     "uppercase extension",
			filename: "Budget.XLSX",
			size:     10,
			want:     FileTypeXLSX,
		},
		{
			name:        "mime type overrides extension",
			filename:    "notes.bin",
			contentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			size:        10,
			want:        FileTypeDOCX,
		},
		{
			name:        "unknown mime keeps extension",
			filename:    "manual.pdf",
			contentType: "application/octet-stream",
			size:        10,
			want:        FileTypePDF,
		},
		{
			name:     "unsupported extension",
			filename: "image.png",
			size:     10,
			wantErr:  ErrUnsupportedFileType,
		},
		{
			name:     "no extension",
			filename: "README",
			size:     10,
			wantErr:  ErrUnsupportedFileType,
		},
		{
			name:     "too large",
			filename: "huge.pdf",
			size:     limit + 1,
			wantErr:  ErrFileTooLarge,
		},
		{
			name:     "empty file",
			filename: "empty.docx",
			size:     0,
			wantErr:  ErrEmptyFile,
		},
		{
			name:     "blank filename",
			filename: "  ",
			size:     10,
			wantErr:  ErrEmptyFilename,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateUpload(tt.filename, tt.contentType, tt.size, limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ValidateUpload() error = %v, want %v", err, tt.wantErr)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ValidateUpload() error = %v, want it to wrap ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateUpload() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateUpload() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:  "valid chunk",
			chunk: &Chunk{DocumentID: "d", Index: 0, Content: "text", Embedding: []float32{0.1}},
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "missing document",
			chunk:   &Chunk{Index: 0, Content: "text", Embedding: []float32{0.1}},
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "negative index",
			chunk:   &Chunk{DocumentID: "d", Index: -1, Content: "text", Embedding: []float32{0.1}},
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "whitespace content",
			chunk:   &Chunk{DocumentID: "d", Content: " \n", Embedding: []float32{0.1}},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "missing embedding",
			chunk:   &Chunk{DocumentID: "d", Content: "text"},
			wantErr: ErrInvalidChunk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChatMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     *ChatMessage
		wantErr error
	}{
		{
			name: "valid user message",
			msg:  &ChatMessage{SessionID: "s", Role: RoleUser, Content: "question"},
		},
		{
			name: "assistant with sources",
			msg: &ChatMessage{SessionID: "s", Role: RoleAssistant, Content: "answer",
				Sources: []Source{{DocumentID: "d", Filename: "a.pdf", Score: 0.9}}},
		},
		{
			name:    "nil message",
			msg:     nil,
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "missing session",
			msg:     &ChatMessage{Role: RoleUser, Content: "q"},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "invalid role",
			msg:     &ChatMessage{SessionID: "s", Role: Role(99), Content: "q"},
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChatMessage(tt.msg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChatMessage() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChatMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	if err := ValidateDocument(&Document{Filename: "a.pdf", Type: FileTypePDF}); err != nil {
		t.Errorf("ValidateDocument() unexpected error = %v", err)
	}
	if err := ValidateDocument(&Document{Filename: "a.txt", Type: "txt"}); !errors.Is(err, ErrUnsupportedFileType) {
		t.Errorf("ValidateDocument() error = %v, want %v", err, ErrUnsupportedFileType)
	}
	if err := ValidateDocument(nil); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("ValidateDocument() error = %v, want %v", err, ErrInvalidDocument)
	}
}

func TestValidateQuestion(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		if err := ValidateQuestion(q); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("ValidateQuestion(%q) error = %v, want %v", q, err, ErrEmptyQuestion)
		}
	}
	if err := ValidateQuestion("What is the refund policy?"); err != nil {
		t.Errorf("ValidateQuestion() unexpected error = %v", err)
	}
}
