package lock

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FormatFor infers a Format from the lock file extension. JSON and .lock
// files (protolock's proto.lock) are text; anything else, such as a buf image,
// is binary.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".lock":
		return FormatText
	default:
		return FormatBinary
	}
}

// Read loads the lock file at path in the given format.
func Read(path string, format Format) (*Snapshot, error) {
	if format != FormatText && format != FormatBinary {
		return nil, fmt.Errorf("reading lock file %s: unsupported format %s", path, format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lock file %s: %w", path, err)
	}

	snap := &Snapshot{
		Path:   path,
		Format: format,
		Raw:    data,
		Digest: xxhash.Sum64(data),
	}
	if format == FormatText {
		snap.Lines = splitLines(data)
	}
	return snap, nil
}

// Changed reports whether after differs from before. Text snapshots are
// compared line by line and a differing line count also counts as a change,
// so content appended past the end of the shorter file is detected. Binary
// snapshots are compared as whole buffers.
func Changed(before, after *Snapshot) bool {
	if before == nil || after == nil {
		return before != after
	}
	if before.Format != FormatText || after.Format != FormatText {
		return !bytes.Equal(before.Raw, after.Raw)
	}
	if len(before.Lines) != len(after.Lines) {
		return true
	}
	for i := range before.Lines {
		if before.Lines[i] != after.Lines[i] {
			return true
		}
	}
	return false
}

// DigestString renders a snapshot digest for display.
func DigestString(s *Snapshot) string {
	if s == nil {
		return "(none)"
	}
	return fmt.Sprintf("%016x", s.Digest)
}

// splitLines splits data after each newline. Lines keep their terminators,
// so line ending and final newline differences are visible to Changed.
func splitLines(data []byte) []string {
	parts := bytes.SplitAfter(data, []byte("\n"))
	if len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(p)
	}
	return lines
}
