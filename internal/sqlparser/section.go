package sqlparser

import (
	"fmt"
	"strings"
)

// sectionMarkers records the line indexes of every Up and Down annotation.
type sectionMarkers struct {
	up   []int
	down []int
}

func findMarkers(lines []string) sectionMarkers {
	var m sectionMarkers
	for i, line := range lines {
		d, ok := ParseDirective(line)
		if !ok {
			continue
		}
		switch d {
		case DirectiveUp:
			m.up = append(m.up, i)
		case DirectiveDown:
			m.down = append(m.down, i)
		case DirectiveStatementBegin, DirectiveStatementEnd, DirectiveNoTransaction,
			DirectiveEnvsubOn, DirectiveEnvsubOff:
		}
	}
	return m
}

func (m sectionMarkers) validate() error {
	if len(m.up) != 1 {
		return fmt.Errorf("%w: expected exactly one %q annotation: Found %d",
			ErrInvalidStructure, DirectiveUp.Annotation(), len(m.up))
	}
	if len(m.down) > 1 {
		return fmt.Errorf("%w: expected at most one %q annotation: Found %d",
			ErrInvalidStructure, DirectiveDown.Annotation(), len(m.down))
	}
	if len(m.down) == 1 && m.down[0] < m.up[0] {
		return fmt.Errorf("%w: %q annotation must come before %q (Up on line %d, Down on line %d)",
			ErrInvalidStructure, DirectiveUp.Annotation(), DirectiveDown.Annotation(), m.up[0]+1, m.down[0]+1)
	}
	return nil
}

// ValidateStructure checks that content has exactly one Up annotation and at most one Down
// annotation following it.
func ValidateStructure(content string) error {
	return findMarkers(splitLines(content)).validate()
}

// HasSectionAnnotations reports whether content contains any Up or Down annotation line.
func HasSectionAnnotations(content string) bool {
	m := findMarkers(splitLines(content))
	return len(m.up) > 0 || len(m.down) > 0
}

// HasDownSection reports whether content contains a Down annotation line.
func HasDownSection(content string) bool {
	return len(findMarkers(splitLines(content)).down) > 0
}

// ExtractUpSection returns the text between the Up annotation and the Down annotation (or the end
// of content), trimmed. An empty result is a valid no-op section.
func ExtractUpSection(content string) (string, error) {
	lines := splitLines(content)
	_, start, end, err := upBounds(lines)
	if err != nil {
		return "", err
	}
	return joinSection(lines[start:end]), nil
}

// ExtractDownSection returns the text after the Down annotation, trimmed.
func ExtractDownSection(content string) (string, error) {
	lines := splitLines(content)
	_, start, err := downBounds(lines)
	if err != nil {
		return "", err
	}
	return joinSection(lines[start:]), nil
}

// upBounds validates the structure and returns the line range of the Up section. The first
// return value is the index of the Up annotation itself.
func upBounds(lines []string) (marker, start, end int, err error) {
	m := findMarkers(lines)
	if err := m.validate(); err != nil {
		return 0, 0, 0, err
	}
	end = len(lines)
	if len(m.down) == 1 {
		end = m.down[0]
	}
	return m.up[0], m.up[0] + 1, end, nil
}

func downBounds(lines []string) (marker, start int, err error) {
	m := findMarkers(lines)
	if err := m.validate(); err != nil {
		return 0, 0, err
	}
	if len(m.down) == 0 {
		return 0, 0, ErrDownSectionNotFound
	}
	return m.down[0], m.down[0] + 1, nil
}

func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

func joinSection(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
