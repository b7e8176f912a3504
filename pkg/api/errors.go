package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrManifest is the sentinel wrapped by every ManifestError.
var ErrManifest = errors.New("invalid manifest")

// Issue is a single problem found in a manifest document.
type Issue struct {
	Path    string // instance location, e.g. "/linux-dev/commands/2"
	Line    int    // 0 when unknown
	Message string
}

func (i Issue) String() string {
	loc := i.Path
	if loc == "" {
		loc = "/"
	}
	if i.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", loc, i.Line, i.Message)
	}
	return fmt.Sprintf("%s: %s", loc, i.Message)
}

// ManifestError reports a malformed manifest. It is fatal: no job runs.
type ManifestError struct {
	File   string
	Issues []Issue
}

func (e *ManifestError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(ErrManifest.Error())
	if e.File != "" {
		b.WriteString(" ")
		b.WriteString(e.File)
	}
	switch len(e.Issues) {
	case 0:
	case 1:
		b.WriteString(": ")
		b.WriteString(e.Issues[0].String())
	default:
		fmt.Fprintf(&b, ": %d issues", len(e.Issues))
		for _, i := range e.Issues {
			b.WriteString("\n  ")
			b.WriteString(i.String())
		}
	}
	return b.String()
}

func (e *ManifestError) Unwrap() error { return ErrManifest }

func manifestErrorf(line int, path, format string, args ...any) *ManifestError {
	return &ManifestError{Issues: []Issue{{Path: path, Line: line, Message: fmt.Sprintf(format, args...)}}}
}
