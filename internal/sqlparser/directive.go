package sqlparser

import (
	"fmt"
	"strings"
)

// Directive is a "-- +goose" annotation recognized on its own line.
type Directive int

const (
	DirectiveUp Directive = iota + 1
	DirectiveDown
	DirectiveStatementBegin
	DirectiveStatementEnd
	DirectiveNoTransaction
	DirectiveEnvsubOn
	DirectiveEnvsubOff
)

var directiveNames = map[Directive]string{
	DirectiveUp:             "Up",
	DirectiveDown:           "Down",
	DirectiveStatementBegin: "StatementBegin",
	DirectiveStatementEnd:   "StatementEnd",
	DirectiveNoTransaction:  "NO TRANSACTION",
	DirectiveEnvsubOn:       "ENVSUB ON",
	DirectiveEnvsubOff:      "ENVSUB OFF",
}

func (d Directive) String() string {
	if name, ok := directiveNames[d]; ok {
		return name
	}
	return fmt.Sprintf("unknown directive (%d)", int(d))
}

// Annotation returns the canonical comment spelling, e.g. "-- +goose Up".
func (d Directive) Annotation() string {
	return "-- +goose " + d.String()
}

// lookup is keyed by the upper-cased keyword with internal whitespace collapsed.
var directiveLookup = map[string]Directive{
	"UP":             DirectiveUp,
	"DOWN":           DirectiveDown,
	"STATEMENTBEGIN": DirectiveStatementBegin,
	"STATEMENTEND":   DirectiveStatementEnd,
	"NO TRANSACTION": DirectiveNoTransaction,
	"ENVSUB ON":      DirectiveEnvsubOn,
	"ENVSUB OFF":     DirectiveEnvsubOff,
}

// ParseDirective reports which directive, if any, the given line holds. Both "-- +goose X" and
// "--+goose X" are accepted and the keyword is matched case-insensitively. Any other "+goose"
// text is not a directive and the line is an ordinary comment.
func ParseDirective(line string) (Directive, bool) {
	line = strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(line, "--")
	if !ok {
		return 0, false
	}
	rest = strings.TrimPrefix(rest, " ")
	rest, ok = strings.CutPrefix(rest, "+goose")
	if !ok {
		return 0, false
	}
	// "+goose" must be followed by whitespace before the keyword.
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return 0, false
	}
	keyword := strings.ToUpper(strings.Join(strings.Fields(rest), " "))
	d, ok := directiveLookup[keyword]
	return d, ok
}

// isLineComment reports whether a trimmed line is a plain "--" comment.
func isLineComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "--")
}
