package chainmap

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound indicates no layer holds the requested key.
	ErrKeyNotFound = errors.New("chainmap: key not found")
	// ErrDuplicateKey indicates the primary layer already holds the key.
	ErrDuplicateKey = errors.New("chainmap: key already exists in primary layer")
	// ErrIndexOutOfRange indicates a layer index outside the layer list.
	ErrIndexOutOfRange = errors.New("chainmap: layer index out of range")
)

// KeyError captures the operation and key alongside the originating error.
type KeyError struct {
	Op  string
	Key any
	Err error
}

func (e *KeyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v: op=%s key=%q", e.Err, e.Op, fmt.Sprint(e.Key))
}

func (e *KeyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IndexError captures a rejected layer index and the layer count at the time.
type IndexError struct {
	Op    string
	Index int
	Len   int
	Err   error
}

func (e *IndexError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v: op=%s index=%d layers=%d", e.Err, e.Op, e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
