// Package envelope extracts binary media from multipart mail-style documents.
//
// One transport variant wraps the downloaded video in a MIME envelope instead
// of sending raw bytes. The decoder locates the boundary, walks the parts and
// returns the first base64-encoded video/audio payload. Decoding is
// whole-or-nothing: corrupted bytes are never partially returned.
package envelope

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// Stage identifies which decoding step failed.
type Stage string

const (
	StageBoundaryNotFound Stage = "boundary-not-found"
	StageNoMatchingPart   Stage = "no-matching-part"
	StageDecodeError      Stage = "decode-error"
)

// ParseError reports a failed decode with the stage that rejected it.
type ParseError struct {
	Stage Stage
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("envelope parse failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("envelope parse failed at %s", e.Stage)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Attachment is a fully decoded media payload.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

var (
	quotedBoundaryPattern   = regexp.MustCompile(`(?i)boundary="([^"]+)"`)
	unquotedBoundaryPattern = regexp.MustCompile(`(?i)boundary=([^\s;"]+)`)
	contentTypePattern      = regexp.MustCompile(`(?i)Content-Type:\s*([a-z0-9][a-z0-9!#$&^_.+-]*/[a-z0-9][a-z0-9!#$&^_.+-]*)`)
	base64EncodingPattern   = regexp.MustCompile(`(?i)Content-Transfer-Encoding:\s*base64`)
	quotedFilenamePattern   = regexp.MustCompile(`(?i)filename="([^"]+)"`)
	unquotedFilenamePattern = regexp.MustCompile(`(?i)filename=([^;\s"]+)`)
	lineBreakPattern        = regexp.MustCompile(`\r?\n`)
)

// Decode returns the first part whose content type is video/* or audio/*
// and whose transfer encoding is base64, decoded to raw bytes. When the part
// declares no filename, fallbackName is used (or "video.mp4" if empty).
func Decode(raw []byte, fallbackName string) (*Attachment, error) {
	doc := string(raw)

	boundary := findBoundary(doc)
	if boundary == "" {
		return nil, &ParseError{Stage: StageBoundaryNotFound}
	}

	parts := strings.Split(doc, "--"+boundary)
	// First chunk is headers/preamble; a terminal "--" chunk may trail.
	for i := 1; i < len(parts); i++ {
		part := parts[i]
		if strings.HasPrefix(strings.TrimSpace(part), "--") {
			// Terminal boundary marker.
			break
		}

		headers, body, ok := splitPart(part)
		if !ok {
			continue
		}
		contentType := matchContentType(headers)
		if contentType == "" {
			continue
		}
		if !strings.HasPrefix(contentType, "video/") && !strings.HasPrefix(contentType, "audio/") {
			continue
		}
		if !base64EncodingPattern.MatchString(headers) {
			continue
		}

		encoded := lineBreakPattern.ReplaceAllString(strings.TrimSpace(body), "")
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, &ParseError{Stage: StageDecodeError, Err: err}
		}

		name := matchFilename(headers)
		if name == "" {
			name = fallbackName
		}
		if name == "" {
			name = "video.mp4"
		}
		return &Attachment{Filename: name, ContentType: contentType, Data: data}, nil
	}

	return nil, &ParseError{Stage: StageNoMatchingPart}
}

func findBoundary(doc string) string {
	if m := quotedBoundaryPattern.FindStringSubmatch(doc); len(m) == 2 {
		return strings.TrimRight(m[1], "-")
	}
	if m := unquotedBoundaryPattern.FindStringSubmatch(doc); len(m) == 2 {
		return strings.TrimRight(m[1], "-")
	}
	return ""
}

// splitPart separates a part into its header block and body at the first
// blank line.
func splitPart(part string) (headers, body string, ok bool) {
	for _, sep := range []string{"\r\n\r\n", "\n\n"} {
		if idx := strings.Index(part, sep); idx >= 0 {
			return part[:idx], part[idx+len(sep):], true
		}
	}
	return "", "", false
}

func matchContentType(headers string) string {
	m := contentTypePattern.FindStringSubmatch(headers)
	if len(m) != 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

func matchFilename(headers string) string {
	if m := quotedFilenamePattern.FindStringSubmatch(headers); len(m) == 2 {
		return m[1]
	}
	if m := unquotedFilenamePattern.FindStringSubmatch(headers); len(m) == 2 {
		return m[1]
	}
	return ""
}
