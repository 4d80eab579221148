// Package heal recovers structured data from truncated or malformed JSON.
//
// CLI agents asked to "respond with JSON only" routinely emit output that
// stops mid-value: the model hit its token limit, the subprocess was killed,
// or a scanner dropped the tail of a line. heal attempts to salvage the
// largest usable prefix of such output.
//
// Recovery runs in three ordered phases; the first success wins:
//
//  1. Direct parse — the text is already valid JSON.
//  2. Balancing — append the closing brackets/braces still open at the end
//     of the text (scanning is string- and escape-aware, so a '{' inside a
//     quoted value is never mistaken for a structural token) and re-parse.
//  3. Progressive trim — drop one trailing byte, re-balance, re-parse;
//     repeat until a parse succeeds or the text is exhausted.
//
// The result must be container-rooted (a JSON object or array); a bare
// scalar is reported as unrecoverable. heal never edits or reorders interior
// bytes and never fabricates content: the only operations are appending
// closing tokens and truncating from the end, so the healed text is always a
// byte prefix of the input plus closers. Trailing data discarded by the trim
// phase is accepted loss, not an error.
//
// All functions are pure and safe for concurrent use. Worst-case cost is
// O(n²) in the input length (n trim rounds, each re-scanning a shrinking
// text); inputs that can never recover are rejected in O(n).
package heal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnrecoverable reports that no phase produced a container-rooted parse
// before the working text was exhausted. It is a normal, expected outcome
// for non-JSON input — callers branch on it rather than treat it as fatal.
var ErrUnrecoverable = errors.New("heal: no recoverable JSON structure")

// Heal returns a valid JSON text recovered from candidate, or
// ErrUnrecoverable. The result is candidate itself when it already parses,
// otherwise a prefix of candidate with closing tokens appended.
func Heal(candidate string) (string, error) {
	// Trimming only removes trailing characters, so the root token never
	// changes: if the first non-space rune is not '{' or '[', no amount of
	// balancing or trimming yields a container root.
	if !containerRooted(candidate) {
		return "", ErrUnrecoverable
	}

	if json.Valid([]byte(candidate)) {
		return candidate, nil
	}

	// Work in bytes, not runes: a rune round-trip would rewrite invalid
	// UTF-8 as U+FFFD, injecting bytes that never appeared in the input.
	// Trimming may split a multi-byte sequence mid-rune; the mangled tail
	// just fails validation and is trimmed further.
	work := []byte(candidate)
	for len(work) > 0 {
		balanced := string(work) + closers(work)
		if json.Valid([]byte(balanced)) {
			return balanced, nil
		}
		work = work[:len(work)-1]
	}
	return "", ErrUnrecoverable
}

// Recover heals candidate and parses the result into a generic value:
// map[string]any for objects, []any for arrays, with the usual
// encoding/json primitive mappings below the root.
func Recover(candidate string) (any, error) {
	healed, err := Heal(candidate)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(healed), &v); err != nil {
		// Heal only returns text that json.Valid accepted.
		return nil, fmt.Errorf("heal: parse healed text: %w", err)
	}
	return v, nil
}

// Decode heals candidate and unmarshals the result into v. Returns
// ErrUnrecoverable when no structure can be salvaged, or a decode error
// when the healed JSON does not fit v.
func Decode(candidate string, v any) error {
	healed, err := Heal(candidate)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(healed), v); err != nil {
		return fmt.Errorf("heal: decode: %w", err)
	}
	return nil
}

// containerRooted reports whether the first non-whitespace rune opens an
// object or array. Only the four JSON whitespace characters are skipped.
func containerRooted(s string) bool {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// closers scans text and returns the closing tokens still owed at the end,
// innermost first. Structural tokens inside string literals are ignored;
// escape sequences are honored so an escaped quote does not end a literal.
// Stray closers that match nothing are ignored — the re-parse after
// appending decides validity, not the scan. Scanning bytewise is safe:
// every token the scan cares about is ASCII, and multi-byte UTF-8
// continuation bytes never collide with ASCII values.
func closers(text []byte) string {
	var stack []byte
	inString := false
	escaped := false

	for _, c := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if n := len(stack); n > 0 && stack[n-1] == c {
				stack = stack[:n-1]
			}
		}
	}

	if len(stack) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
