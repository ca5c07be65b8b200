package sqlparser

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"strings"

	"github.com/mfridman/interpolate"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func FromBool(b bool) Direction {
	if b {
		return DirectionUp
	}
	return DirectionDown
}

func (d Direction) String() string {
	return string(d)
}

func (d Direction) ToBool() bool {
	return d == DirectionUp
}

// ParseResult is the outcome of parsing one direction of a migration.
type ParseResult struct {
	// Statements are in execution order. Each ends with exactly one semicolon.
	Statements []string
	// UseTx is false when the file opens with "-- +goose NO TRANSACTION".
	UseTx bool
}

// Options configures a single Parse call. The zero value is ready to use.
type Options struct {
	// Env is the lookup used by "-- +goose ENVSUB ON". When nil the process environment is read.
	Env interpolate.Env
	// Verbose prints state machine transitions through Logf.
	Verbose bool
	// Logf defaults to log.Printf.
	Logf func(format string, args ...any)
}

// Parse splits the requested direction of a migration into executable statements.
//
// The base case is to simply split on semicolons, as these naturally terminate a statement.
// Semicolons inside quoted strings, quoted identifiers, dollar-quoted bodies and comments are
// ignored. For anything else that must not be split, such as MySQL procedures, the
// 'StatementBegin' and 'StatementEnd' annotations turn the enclosed lines into one statement.
//
// Content without any Up or Down annotation is treated as an already extracted section.
func Parse(content string, direction Direction, opts *Options) (*ParseResult, error) {
	if opts == nil {
		opts = new(Options)
	}
	if direction != DirectionUp && direction != DirectionDown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDirection, direction)
	}
	content = normalizeNewlines(content)
	env := opts.Env
	if env == nil {
		env = processEnv()
	}
	var logf func(string, ...any)
	if opts.Verbose {
		logf = opts.Logf
		if logf == nil {
			logf = log.Printf
		}
	}

	section := content
	var envsub bool
	if HasSectionAnnotations(content) {
		lines := splitLines(content)
		var (
			start, end int
			err        error
		)
		switch direction {
		case DirectionUp:
			_, start, end, err = upBounds(lines)
		case DirectionDown:
			_, start, err = downBounds(lines)
			end = len(lines)
		}
		if err != nil {
			return nil, err
		}
		section = joinSection(lines[start:end])
		envsub = envsubBefore(lines[:start])
	}

	stmts, err := newAssembler(env, envsub, logf).assemble(section)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s migration: %w", direction, err)
	}
	return &ParseResult{
		Statements: stripDirectives(stmts),
		UseTx:      useTransaction(content),
	}, nil
}

// useTransaction reports false only when the first non-blank line is NO TRANSACTION.
func useTransaction(content string) bool {
	for _, line := range splitLines(content) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		d, ok := ParseDirective(line)
		return !(ok && d == DirectiveNoTransaction)
	}
	return true
}

// envsubBefore returns the ENVSUB state in effect after the given lines.
func envsubBefore(lines []string) bool {
	var on bool
	for _, line := range lines {
		switch d, _ := ParseDirective(line); d {
		case DirectiveEnvsubOn:
			on = true
		case DirectiveEnvsubOff:
			on = false
		}
	}
	return on
}

// stripDirectives drops any annotation line that ended up inside a statement.
func stripDirectives(stmts []string) []string {
	out := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		if !strings.Contains(stmt, "+goose") {
			out = append(out, stmt)
			continue
		}
		lines := splitLines(stmt)
		kept := lines[:0]
		for _, line := range lines {
			if _, ok := ParseDirective(line); !ok {
				kept = append(kept, line)
			}
		}
		if cleaned := strings.Join(kept, "\n"); !isCommentOnly(cleaned) {
			out = append(out, cleanupStatement(cleaned))
		}
	}
	return out
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ParseSQLMigration reads a whole migration from r and returns the statements for the given
// direction and whether they should run inside a transaction.
func ParseSQLMigration(r io.Reader, direction Direction, debug bool) (stmts []string, useTx bool, err error) {
	by, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read migration: %w", err)
	}
	res, err := Parse(string(by), direction, &Options{Verbose: debug})
	if err != nil {
		return nil, false, err
	}
	return res.Statements, res.UseTx, nil
}

// ParsedSQL holds both directions of one SQL migration file.
type ParsedSQL struct {
	UseTx    bool
	Up, Down []string
}

// ParseAllFromFS parses both directions of filename. Unlike [Parse], the file must carry an Up
// annotation. A file without a Down section has no down statements.
func ParseAllFromFS(fsys fs.FS, filename string, debug bool) (*ParsedSQL, error) {
	return ParseAllFromFSWithEnv(fsys, filename, nil, debug)
}

// ParseAllFromFSWithEnv is [ParseAllFromFS] with an explicit ENVSUB lookup.
func ParseAllFromFSWithEnv(fsys fs.FS, filename string, env interpolate.Env, debug bool) (*ParsedSQL, error) {
	by, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration file: %w", err)
	}
	content := normalizeNewlines(string(by))
	if err := ValidateStructure(content); err != nil {
		return nil, fmt.Errorf("failed to parse migration %s: %w", filename, err)
	}
	if env == nil {
		env = processEnv()
	}
	opts := &Options{Env: env, Verbose: debug}
	up, err := Parse(content, DirectionUp, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	parsed := &ParsedSQL{
		UseTx: up.UseTx,
		Up:    up.Statements,
	}
	if HasDownSection(content) {
		down, err := Parse(content, DirectionDown, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		parsed.Down = down.Statements
	}
	return parsed, nil
}
