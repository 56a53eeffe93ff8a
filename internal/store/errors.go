package store

import "fmt"

// IOError reports that the backing file could not be opened, read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports a complete line that does not decode into a record.
// Line is 1-based.
type ParseError struct {
	Path    string
	Line    int
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("store %s: cannot parse line %d %q: %v", e.Path, e.Line, e.Content, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
