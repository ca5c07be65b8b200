package goose

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type camelSnakeStateMachine int

const (
	begin         camelSnakeStateMachine = iota // 0
	firstAlphaNum                               // 1
	alphaNum                                    // 2
	delimiter                                   // 3
)

func (s camelSnakeStateMachine) next(r rune) camelSnakeStateMachine {
	switch s {
	case begin:
		if isAlphaNum(r) {
			return firstAlphaNum
		}
	case firstAlphaNum:
		if isAlphaNum(r) {
			return alphaNum
		}
		return delimiter
	case alphaNum:
		if !isAlphaNum(r) {
			return delimiter
		}
	case delimiter:
		if isAlphaNum(r) {
			return firstAlphaNum
		}
		return begin
	}
	return s
}

// camelCase turns a free-form migration name into an exported Go identifier fragment.
func camelCase(str string) string {
	var b strings.Builder
	state := begin
	for i := 0; i < len(str); {
		r, size := utf8.DecodeRuneInString(str[i:])
		i += size
		state = state.next(r)
		switch state {
		case firstAlphaNum:
			b.WriteRune(unicode.ToUpper(r))
		case alphaNum:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// snakeCase turns a free-form migration name into the lower_snake form used in file names.
func snakeCase(str string) string {
	var b strings.Builder
	state := begin
	for i := 0; i < len(str); {
		r, size := utf8.DecodeRuneInString(str[i:])
		i += size
		state = state.next(r)
		switch state {
		case firstAlphaNum:
			if b.Len() > 0 {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case alphaNum:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
