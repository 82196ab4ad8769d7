// SPDX-License-Identifier: MPL-2.0

// Package metadata extracts and parses the X-Env metadata dialect embedded in
// layer description files. The dialect is a closed schema: every recognized
// field is enumerated here and anything else is rejected at parse time.
//
// A metadata block is a run of comment lines bounded by METABEGIN/METAEND
// markers:
//
//	# METABEGIN
//	# X-Env-Layer-Name: mylayer
//	# X-Env-VarPrefix: my
//	# X-Env-Var-hostname: localhost
//	# METAEND
//
// Files that carry bare X-Env-* lines without the marker pair are accepted
// as a fallback for plain metadata files.
package metadata

import "fmt"

// ParseError is a structured parse failure carrying the file, line number and
// reason. Line is zero when the failure is not tied to a single line.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func parseErrorf(path string, line int, format string, args ...any) *ParseError {
	return &ParseError{Path: path, Line: line, Reason: fmt.Sprintf(format, args...)}
}
