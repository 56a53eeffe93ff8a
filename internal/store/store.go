// Package store is an append-only log of JSON records, one per line.
//
// The log has a single writer and any number of readers. Readers open the
// file on every call and only ever look at complete lines: bytes after the
// last newline belong to a write in progress (or a crashed one) and are
// ignored.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// chunkSize is the block size used when scanning the file backwards.
const chunkSize = 64 * 1024

// Store persists records of type T in a single newline-delimited JSON file.
type Store[T any] struct {
	path string
}

// New returns a store backed by path. The file is created on first Append.
func New[T any](path string) *Store[T] {
	return &Store[T]{path: path}
}

// Path returns the backing file path.
func (s *Store[T]) Path() string { return s.path }

// Append encodes record and writes it as one newline-terminated line.
// No fsync is issued.
func (s *Store[T]) Append(record T) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	payload = append(payload, '\n')

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &IOError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &IOError{Op: "open", Path: s.path, Err: err}
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}

// ReadAll decodes every record in arrival order. A single undecodable line
// aborts the whole read with a *ParseError.
func (s *Store[T]) ReadAll() ([]T, error) {
	var records []T
	err := s.scan(func(lineNo int, line []byte) (bool, error) {
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return false, &ParseError{Path: s.path, Line: lineNo, Content: string(line), Err: err}
		}
		records = append(records, rec)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadFirst returns up to the first n decodable records in arrival order.
// Undecodable lines are skipped.
func (s *Store[T]) ReadFirst(n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	records := make([]T, 0, n)
	err := s.scan(func(_ int, line []byte) (bool, error) {
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return true, nil
		}
		records = append(records, rec)
		return len(records) < n, nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadLast returns up to the last n decodable records in arrival order.
// The file is read backwards in chunks, so only the tail is loaded.
// Undecodable lines are skipped.
func (s *Store[T]) ReadLast(n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: s.path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &IOError{Op: "stat", Path: s.path, Err: err}
	}

	records := make([]T, 0, n)
	collect := func(line []byte) bool {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			return false
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return false
		}
		records = append(records, rec)
		return len(records) == n
	}

	var (
		offset   = info.Size()
		carry    []byte
		sawBreak bool
		done     bool
	)
	for offset > 0 && !done {
		size := int64(chunkSize)
		if offset < size {
			size = offset
		}
		offset -= size

		buf := make([]byte, size, size+int64(len(carry)))
		if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
			return nil, &IOError{Op: "read", Path: s.path, Err: err}
		}
		buf = append(buf, carry...)

		for !done {
			i := bytes.LastIndexByte(buf, '\n')
			if i < 0 {
				break
			}
			line := buf[i+1:]
			buf = buf[:i]
			if !sawBreak {
				// everything after the final newline is an unterminated tail
				sawBreak = true
				continue
			}
			done = collect(line)
		}
		carry = buf
	}
	if !done && sawBreak && len(carry) > 0 {
		collect(carry)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Count returns the number of non-empty complete lines. A missing file counts
// as zero.
func (s *Store[T]) Count() (int, error) {
	count := 0
	err := s.scan(func(int, []byte) (bool, error) {
		count++
		return true, nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// IsEmpty reports whether the log holds no readable lines. A missing or
// unreadable file is empty.
func (s *Store[T]) IsEmpty() bool {
	n, err := s.Count()
	return err != nil || n == 0
}

// scan streams non-empty complete lines to fn until fn returns false or an
// error. The trailing unterminated line, if any, is never passed to fn.
func (s *Store[T]) scan(fn func(lineNo int, line []byte) (bool, error)) error {
	f, err := os.Open(s.path)
	if err != nil {
		return &IOError{Op: "open", Path: s.path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		raw, err := r.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &IOError{Op: "read", Path: s.path, Err: err}
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		more, err := fn(lineNo, line)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}
