package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound matches *NotFoundError.
	ErrNotFound = errors.New("transaction not found")
	// ErrStoreLocked means another process holds the store's lock file.
	ErrStoreLocked = errors.New("store is locked by another process")
	// ErrIO matches *IOError.
	ErrIO = errors.New("store i/o failure")
)

// NotFoundError lists ids that a statement referenced but the store lacks.
type NotFoundError struct {
	IDs []int64
}

func (e *NotFoundError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s: %s", ErrNotFound, strings.Join(ids, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IOError wraps a failure reading or writing the backing file. The previous
// durable snapshot is untouched when a write fails.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }
