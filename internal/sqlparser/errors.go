package sqlparser

import "errors"

var (
	// ErrInvalidStructure is returned when the Up/Down annotations are missing, repeated or out
	// of order.
	ErrInvalidStructure = errors.New("invalid migration structure")
	// ErrNestedStatementBegin is returned when a StatementBegin appears inside an open block.
	ErrNestedStatementBegin = errors.New("nested StatementBegin")
	// ErrUnmatchedStatementEnd is returned when a StatementEnd appears outside a block.
	ErrUnmatchedStatementEnd = errors.New("StatementEnd without matching StatementBegin")
	// ErrUnclosedStatementBegin is returned when the input ends inside a block.
	ErrUnclosedStatementBegin = errors.New("unclosed StatementBegin block")
	// ErrDownSectionNotFound is returned when the down direction is requested from a file that
	// has no Down annotation.
	ErrDownSectionNotFound = errors.New("DOWN section not found")
	// ErrUnsupportedDirection is returned for a direction other than up or down.
	ErrUnsupportedDirection = errors.New("unsupported direction")
)
