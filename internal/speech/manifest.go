package speech

import (
	"fmt"
	"strings"
)

// Segment is one encoded piece of the final artifact. Chunk and Index give
// its position: all segments of chunk n precede those of chunk n+1.
type Segment struct {
	Chunk       int
	Index       int
	RawPath     string
	EncodedPath string
}

// BuildManifest renders a concat-demuxer list with one line per segment in
// the given order.
func BuildManifest(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "file '%s'\n", escapeManifestPath(seg.EncodedPath))
	}
	return b.String()
}

// escapeManifestPath closes the quote, emits an escaped quote and reopens.
func escapeManifestPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
