package storage

import (
	"fmt"
	"strings"
)

// WriteMode controls what happens to objects already stored under a
// partition.
type WriteMode int

const (
	// ModeAppend adds new objects and leaves existing ones in place.
	ModeAppend WriteMode = iota
	// ModeOverwrite removes the existing objects of every written partition
	// before writing.
	ModeOverwrite
)

func (m WriteMode) String() string {
	switch m {
	case ModeAppend:
		return "append"
	case ModeOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("WriteMode(%d)", int(m))
	}
}

// ParseWriteMode accepts "append" or "overwrite", case-insensitively.
func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "append":
		return ModeAppend, nil
	case "overwrite":
		return ModeOverwrite, nil
	default:
		return 0, fmt.Errorf("unsupported write mode %q (supported: append, overwrite)", s)
	}
}
