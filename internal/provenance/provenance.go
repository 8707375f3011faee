// Package provenance decodes the structured metadata embedded in generated
// asset filenames.
//
// Generated assets are written to object storage as
//
//	<timestampMillis>-<hexFingerprint>-<entitySlug>-<sequenceIndex>.<ext>
//
// e.g. "1700000000000-abc123-oak-parquet-0.png". The entity slug may itself
// contain hyphens, so parsing is right-anchored on the trailing
// "-<digits>.<ext>" suffix rather than split on every hyphen.
package provenance

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Provenance is the structured descriptor recovered from an asset filename.
type Provenance struct {
	CreatedAtMillis int64
	Fingerprint     string
	EntitySlug      string
	SequenceIndex   int
}

// ParseError reports a filename that does not follow the generated-asset
// pattern. Malformed paths are expected input (manual uploads, stray files)
// and are reported per object, never fatal.
type ParseError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable asset path %q: %s", e.Path, e.Reason)
}

// Parse decodes an object path into its provenance descriptor.
// Only the final path element is inspected; directory prefixes are ignored.
func Parse(objectPath string) (*Provenance, error) {
	base := path.Base(objectPath)

	ext := path.Ext(base)
	if ext == "" || ext == base {
		return nil, &ParseError{Path: objectPath, Reason: "missing file extension"}
	}
	stem := strings.TrimSuffix(base, ext)

	// Right-anchor on the trailing "-<digits>" so multi-hyphen slugs
	// are not truncated.
	cut := strings.LastIndexByte(stem, '-')
	if cut < 0 {
		return nil, &ParseError{Path: objectPath, Reason: "missing sequence index"}
	}
	seq, err := strconv.Atoi(stem[cut+1:])
	if err != nil || seq < 0 {
		return nil, &ParseError{Path: objectPath, Reason: "sequence index is not a non-negative integer"}
	}
	rest := stem[:cut]

	tsEnd := strings.IndexByte(rest, '-')
	if tsEnd < 0 {
		return nil, &ParseError{Path: objectPath, Reason: "missing fingerprint and slug segments"}
	}
	ts, err := strconv.ParseInt(rest[:tsEnd], 10, 64)
	if err != nil || ts < 0 {
		return nil, &ParseError{Path: objectPath, Reason: "timestamp is not a non-negative integer"}
	}

	rest = rest[tsEnd+1:]
	fpEnd := strings.IndexByte(rest, '-')
	if fpEnd < 0 {
		return nil, &ParseError{Path: objectPath, Reason: "missing slug segment"}
	}
	fingerprint := rest[:fpEnd]
	if fingerprint == "" || !isHex(fingerprint) {
		return nil, &ParseError{Path: objectPath, Reason: "fingerprint is not valid hex"}
	}

	slug := rest[fpEnd+1:]
	if slug == "" {
		return nil, &ParseError{Path: objectPath, Reason: "empty entity slug"}
	}

	return &Provenance{
		CreatedAtMillis: ts,
		Fingerprint:     fingerprint,
		EntitySlug:      slug,
		SequenceIndex:   seq,
	}, nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
