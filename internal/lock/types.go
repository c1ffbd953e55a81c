package lock

import "fmt"

// Format selects how a lock file is read and compared. The content itself is
// opaque: text lock files are compared line by line, binary ones as a whole.
type Format int

const (
	FormatUnknown Format = iota
	FormatText
	FormatBinary
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// ParseFormat maps a configuration value to a Format. The empty string
// yields FormatUnknown so callers can fall back to FormatFor.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text":
		return FormatText, nil
	case "binary":
		return FormatBinary, nil
	case "":
		return FormatUnknown, nil
	default:
		return FormatUnknown, fmt.Errorf("invalid lock format '%s' — must be one of: text, binary", s)
	}
}

// Snapshot is the in-memory content of a lock file at one point in time.
type Snapshot struct {
	Path   string
	Format Format
	Lines  []string // text only, each with its line terminator
	Raw    []byte
	Digest uint64 // xxhash64 of Raw
}
