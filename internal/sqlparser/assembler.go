package sqlparser

import (
	"fmt"
	"strings"

	"github.com/mfridman/interpolate"
)

type parserState int

const (
	stateNormal parserState = iota
	stateInBlock
)

func (s parserState) String() string {
	switch s {
	case stateNormal:
		return "NORMAL"
	case stateInBlock:
		return "IN_BLOCK"
	}
	return fmt.Sprintf("unknown (%d)", int(s))
}

// assembler turns the lines of one section into statements. It lives for a single parse call.
type assembler struct {
	state  parserState
	qc     quoteContext
	envsub bool
	env    interpolate.Env
	logf   func(format string, args ...any)

	buf   strings.Builder
	stmts []string
}

func newAssembler(env interpolate.Env, envsub bool, logf func(string, ...any)) *assembler {
	return &assembler{
		env:    env,
		envsub: envsub,
		logf:   logf,
	}
}

func (a *assembler) set(next parserState) {
	a.print("set %s => %s", a.state, next)
	a.state = next
}

const (
	grayColor  = "\033[90m"
	resetColor = "\033[00m"
)

func (a *assembler) print(msg string, args ...any) {
	if a.logf != nil {
		a.logf(grayColor+"StateMachine: "+msg+resetColor, args...)
	}
}

// assemble runs every line of section through the state machine and returns the statements in
// order of appearance.
func (a *assembler) assemble(section string) ([]string, error) {
	for _, line := range splitLines(section) {
		if err := a.feed(line); err != nil {
			return nil, err
		}
	}
	if a.state == stateInBlock {
		return nil, fmt.Errorf("%w: missing %q annotation", ErrUnclosedStatementBegin, DirectiveStatementEnd.Annotation())
	}
	a.flush()
	return a.stmts, nil
}

func (a *assembler) feed(line string) error {
	trimmed := strings.TrimSpace(line)
	if d, ok := ParseDirective(trimmed); ok {
		return a.directive(d)
	}
	if a.buf.Len() == 0 && (trimmed == "" || isLineComment(trimmed)) {
		a.print("ignore comment")
		return nil
	}
	if a.envsub {
		var err error
		if line, err = substituteEnv(a.env, line); err != nil {
			return err
		}
	}
	if a.state == stateInBlock {
		a.buf.WriteString(line)
		a.buf.WriteByte('\n')
		return nil
	}
	res := scanLine(line, a.qc)
	a.qc = res.next
	prev := 0
	for _, end := range res.ends {
		a.buf.WriteString(line[prev:end])
		a.flush()
		prev = end
	}
	rest := line[prev:]
	if prev > 0 && a.buf.Len() == 0 {
		// Text trailing the last statement on this line starts a new statement only when it holds
		// more than whitespace or a comment.
		if t := strings.TrimSpace(rest); t == "" || isLineComment(t) {
			return nil
		}
	}
	a.buf.WriteString(rest)
	a.buf.WriteByte('\n')
	return nil
}

func (a *assembler) directive(d Directive) error {
	switch d {
	case DirectiveStatementBegin:
		if a.state == stateInBlock {
			return fmt.Errorf("%w: %q found inside an open block", ErrNestedStatementBegin, d.Annotation())
		}
		a.flush()
		a.qc = quoteContext{}
		a.set(stateInBlock)
	case DirectiveStatementEnd:
		if a.state != stateInBlock {
			return fmt.Errorf("%w: %q", ErrUnmatchedStatementEnd, d.Annotation())
		}
		a.flush()
		a.qc = quoteContext{}
		a.set(stateNormal)
	case DirectiveEnvsubOn:
		a.envsub = true
		a.print("envsub on")
	case DirectiveEnvsubOff:
		a.envsub = false
		a.print("envsub off")
	case DirectiveNoTransaction:
		// Only meaningful as the first line of the file, which the caller checks.
	case DirectiveUp, DirectiveDown:
		// Sections are extracted before assembly.
	}
	return nil
}

// flush emits the buffer as one statement unless it holds nothing but comments.
func (a *assembler) flush() {
	raw := a.buf.String()
	a.buf.Reset()
	if isCommentOnly(raw) {
		if strings.TrimSpace(raw) != "" {
			a.print("drop comment-only statement")
		}
		return
	}
	a.stmts = append(a.stmts, cleanupStatement(raw))
	a.print("store statement")
}

// cleanupStatement trims whitespace and normalizes the statement to end with exactly one
// semicolon. When the statement ends inside a line comment the semicolon goes on its own line.
// A block comment that is never closed is malformed input: the semicolon is appended inside it
// unchanged and the database reports the unterminated comment.
func cleanupStatement(input string) string {
	s := strings.TrimSpace(input)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	lines := splitLines(s)
	if scanLastLine(lines) {
		return s + "\n;"
	}
	return s + ";"
}

// scanLastLine reports whether the final line of a statement ends inside a line comment.
func scanLastLine(lines []string) bool {
	var qc quoteContext
	var res scanResult
	for _, line := range lines {
		res = scanLine(line, qc)
		qc = res.next
	}
	return res.lineComment
}
