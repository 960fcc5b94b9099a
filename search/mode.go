package search

import (
	"fmt"
	"strings"
)

// Mode selects how Search finds documents.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeKeyword Mode = "keyword"
	ModeHybrid  Mode = "hybrid"
)

// ParseMode converts s to a Mode. An empty string selects ModeHybrid.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeHybrid, nil
	case ModeVector, ModeKeyword, ModeHybrid:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m Mode) valid() bool {
	return m == ModeVector || m == ModeKeyword || m == ModeHybrid
}
