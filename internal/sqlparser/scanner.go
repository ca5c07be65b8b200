package sqlparser

import "strings"

// quoteContext is the lexical state carried from one line to the next. Line comments end at the
// newline and are never carried.
type quoteContext struct {
	singleQuote  bool
	doubleQuote  bool
	blockComment bool
	// dollarTag is the active tag when inDollar is set. The empty tag ($$) is valid.
	inDollar  bool
	dollarTag string
}

// active reports whether a semicolon at this point would be inert.
func (qc quoteContext) active() bool {
	return qc.singleQuote || qc.doubleQuote || qc.blockComment || qc.inDollar
}

type scanResult struct {
	// ends holds the byte offsets just past every terminating semicolon in the line.
	ends []int
	// next is the state to carry into the following line.
	next quoteContext
	// lineComment is set when the line finished inside a "--" comment.
	lineComment bool
}

// scanLine walks a single line starting from the carried context and reports where statements
// terminate.
func scanLine(line string, qc quoteContext) scanResult {
	return scan(line, qc, nil)
}

// scan is scanLine with an optional sink: when code is non-nil every byte that is not part of a
// comment is copied to it.
func scan(line string, qc quoteContext, code *strings.Builder) scanResult {
	var res scanResult
	keep := func(s string) {
		if code != nil {
			code.WriteString(s)
		}
	}
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case qc.inDollar:
			closing := "$" + qc.dollarTag + "$"
			if strings.HasPrefix(line[i:], closing) {
				qc.inDollar = false
				qc.dollarTag = ""
				keep(closing)
				i += len(closing)
				continue
			}
			keep(line[i : i+1])
			i++
		case qc.blockComment:
			if strings.HasPrefix(line[i:], "*/") {
				qc.blockComment = false
				i += 2
				continue
			}
			i++
		case qc.singleQuote, qc.doubleQuote:
			quote := byte('\'')
			if qc.doubleQuote {
				quote = '"'
			}
			if c == quote {
				// A doubled quote is an escaped quote, not a terminator.
				if i+1 < len(line) && line[i+1] == quote {
					keep(line[i : i+2])
					i += 2
					continue
				}
				qc.singleQuote, qc.doubleQuote = false, false
			}
			keep(line[i : i+1])
			i++
		default:
			switch c {
			case '$':
				// A $ inside an identifier such as sys$log is part of the identifier.
				if i > 0 && isTagCont(line[i-1]) {
					break
				}
				if tag, width, ok := dollarOpener(line[i:]); ok {
					qc.inDollar = true
					qc.dollarTag = tag
					keep(line[i : i+width])
					i += width
					continue
				}
			case '/':
				if strings.HasPrefix(line[i:], "/*") {
					qc.blockComment = true
					i += 2
					continue
				}
			case '-':
				if strings.HasPrefix(line[i:], "--") {
					res.lineComment = true
					res.next = qc
					return res
				}
			case '\'':
				qc.singleQuote = true
			case '"':
				qc.doubleQuote = true
			case ';':
				res.ends = append(res.ends, i+1)
			}
			keep(line[i : i+1])
			i++
		}
	}
	res.next = qc
	return res
}

// dollarOpener reports whether s starts with a dollar-quote delimiter ($$ or $tag$) and returns
// the tag and the delimiter width. A tag cannot start with a digit, so positional parameters
// like $1 are not delimiters.
func dollarOpener(s string) (string, int, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", 0, false
	}
	if s[1] == '$' {
		return "", 2, true
	}
	if !isTagStart(s[1]) {
		return "", 0, false
	}
	j := 2
	for j < len(s) && isTagCont(s[j]) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return "", 0, false
	}
	return s[1:j], j + 1, true
}

func isTagStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isTagCont(c byte) bool {
	return isTagStart(c) || (c >= '0' && c <= '9')
}

// stripComments returns s without its line and block comments. Quoted text is kept verbatim.
func stripComments(s string) string {
	var b strings.Builder
	var qc quoteContext
	for _, line := range strings.Split(s, "\n") {
		qc = scan(line, qc, &b).next
		b.WriteByte('\n')
	}
	return b.String()
}

// isCommentOnly reports whether s holds nothing but comments, whitespace and semicolons.
func isCommentOnly(s string) bool {
	return strings.Trim(stripComments(s), "; \t\n") == ""
}
