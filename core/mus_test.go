package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestRoleMUS_RejectsUnknownRole(t *testing.T) {
	buf := make([]byte, RoleMUS.Size(Role(9)))
	RoleMUS.Marshal(Role(9), buf)

	if _, _, err := RoleMUS.Unmarshal(buf); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Unmarshal() error = %v, want %v", err, ErrInvalidRole)
	}
}

func TestTimeMUS_UTC(t *testing.T) {
	local := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.FixedZone("UTC+2", 2*60*60))

	buf := make([]byte, TimeMUS.Size(local))
	TimeMUS.Marshal(local, buf)
	got, n, err := TimeMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("Unmarshal() read %d bytes, want %d", n, len(buf))
	}
	if !got.Equal(local) || got.Location() != time.UTC {
		t.Errorf("Unmarshal() = %v, want %v in UTC", got, local)
	}
}

func TestChatMessageMUS_Skip(t *testing.T) {
	msg := ChatMessage{ID: "m1", SessionID: "s1", Role: RoleAssistant, Content: "answer",
		Sources: []Source{{DocumentID: "d1", Filename: "a.pdf", Score: 0.5}}}

	size := ChatMessageMUS.Size(msg)
	buf := make([]byte, size+3)
	ChatMessageMUS.Marshal(msg, buf)

	n, err := ChatMessageMUS.Skip(buf)
	if err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if n != size {
		t.Errorf("Skip() = %d, want %d", n, size)
	}

	got, _, err := ChatMessageMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(got, msg) {
		t.Errorf("Unmarshal() = %+v, want %+v", got, msg)
	}
}
