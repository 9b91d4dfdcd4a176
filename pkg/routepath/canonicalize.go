// Package routepath canonicalizes raw request paths before they are
// classified.
//
// Canonicalization is purely syntactic: it never looks at the registries.
// It removes the trailing slash, collapses repeated slashes, resolves dot
// segments and rejects inputs that could smuggle path structure (backslash,
// NUL, bad escapes, encoded slashes inside a segment, ".." above root).
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Path canonicalization errors.
var (
	ErrInvalidPath           = errors.New("invalid path")
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in segment")
)

// RawPath returns the path part of input, which may be a bare path or an
// absolute http(s) URL whose host is ignored. The query and fragment are
// dropped. Nothing is decoded or cleaned.
func RawPath(input string) string {
	for _, scheme := range []string{"http://", "https://"} {
		rest, ok := strings.CutPrefix(input, scheme)
		if !ok {
			continue
		}
		i := strings.IndexAny(rest, "/?#")
		if i < 0 {
			return "/"
		}
		input = rest[i:]
		break
	}

	input, _, _ = strings.Cut(input, "#")
	input, _, _ = strings.Cut(input, "?")
	return input
}

// Canonicalize normalizes a raw path. The input may be a bare path
// ("lake-city/"), an absolute path, or an absolute http(s) URL whose host is
// ignored. The query and fragment are discarded.
//
// The following transformations are applied:
//   - Ensure a leading slash
//   - Collapse multiple slashes (/about//team -> /about/team)
//   - Remove "." segments
//   - Resolve ".." segments
//   - Remove trailing slash (except for root "/")
//
// The following inputs are rejected with an error:
//   - Paths containing backslash (\)
//   - Paths containing NUL byte (literal or %00)
//   - Invalid percent-escapes (e.g., %GG, %2)
//   - ".." that would escape root (e.g., /../secret)
func Canonicalize(input string) (string, error) {
	path := RawPath(input)
	if path == "" {
		return "/", nil
	}

	if strings.Contains(path, "\\") {
		return "", ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return "", err
		}
	}

	var result []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(result) == 0 {
				return "", ErrPathEscapesRoot
			}
			result = result[:len(result)-1]
		default:
			result = append(result, seg)
		}
	}

	return "/" + strings.Join(result, "/"), nil
}

// validatePercentEscapes checks that all percent-escapes are valid.
// Valid escapes are %XX where X is a hex digit (0-9, a-f, A-F).
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// DecodeSegment decodes a single path segment. A segment that decodes to
// something containing "/" is rejected: it would let one segment pose as
// several.
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

// Segments decodes every segment of a canonical path. The root path has no
// segments.
func Segments(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}

	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		decoded, err := DecodeSegment(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}
