// Package modetag separates machine-directed control metadata from
// human-directed text in a generation result.
//
// The backend is instructed to end its reply with a bracketed marker of
// the exact form [MODE:n] (fixed keyword, single decimal digit). That
// lexical form is a contract shared with the prompt instructions and
// must not change independently on either side.
package modetag

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode is a discrete ambient state id carried in generated text.
//
// The package does not validate ids against any enumeration; whatever
// digit the backend emitted is passed through and the host decides what
// an unknown id means.
type Mode int

var tagPattern = regexp.MustCompile(`\[MODE:(\d)\]`)

// Extract splits raw generated text into user-visible text and a mode id.
//
// The first tag governs the mode; every tag-shaped substring is stripped
// so control syntax never leaks to the user. A missing tag keeps prev,
// giving continuity with the previous turn. Extract is idempotent: run
// on its own output it returns the same text and the same mode.
func Extract(raw string, prev Mode) (string, Mode) {
	match := tagPattern.FindStringSubmatch(raw)
	if match == nil {
		return strings.TrimSpace(raw), prev
	}

	mode := Mode(match[1][0] - '0')
	clean := tagPattern.ReplaceAllString(raw, "")
	return strings.TrimSpace(clean), mode
}

// Tag renders the wire form of a mode, e.g. Tag(3) == "[MODE:3]".
// Only single-digit modes have a wire form; Tag is used when building
// the instruction block that teaches the backend the contract.
func Tag(m Mode) string {
	return fmt.Sprintf("[MODE:%d]", int(m))
}
