// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the pipeline matches exactly one of
// these with errors.Is.
var (
	ErrUnsupportedInput = errors.New("unsupported or unreadable input")
	ErrConversion       = errors.New("conversion failed")
	ErrFileNotFound     = errors.New("file not found")
	ErrRemoteService    = errors.New("remote service error")
	ErrAssembly         = errors.New("assembly failed")
)

// Error is a pipeline failure tagged with its kind, the stage that raised
// it and the path or identifier involved.
type Error struct {
	Kind  error
	Stage string
	Path  string
	Err   error
}

// NewError builds an Error. err may be nil when the kind says it all.
func NewError(kind error, stage, path string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
