// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apperr classifies pipeline failures. Stages return *Error values
// wrapped with eris at their boundary; callers recover the kind with KindOf.
//
// Retrieval partial failures and rate limits are not represented here: the
// literature retriever absorbs them and only logs.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInitialization covers credential load and token exchange failures.
	KindInitialization
	// KindFileType is a rejected non-PDF upload.
	KindFileType
	// KindAPI is a non-2xx response from an external endpoint.
	KindAPI
	// KindParse covers missing fenced blocks, invalid JSON and schema mismatches.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindInitialization:
		return "initialization"
	case KindFileType:
		return "file type"
	case KindAPI:
		return "api"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Status is set for KindAPI when the server
// answered; Err carries the underlying cause.
type Error struct {
	Kind   Kind
	Msg    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Initialization returns a KindInitialization error.
func Initialization(err error) *Error {
	return &Error{Kind: KindInitialization, Msg: "failed to initialize", Err: err}
}

// FileType returns a KindFileType error naming the rejected MIME type.
func FileType(mimeType string) *Error {
	return &Error{Kind: KindFileType, Msg: fmt.Sprintf("please upload a PDF file (got %q)", mimeType)}
}

// API returns a KindAPI error. message is the server-provided message, or
// empty to fall back to the status code.
func API(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("unexpected error: %d", status)
	}
	return &Error{Kind: KindAPI, Msg: message, Status: status}
}

// Parse returns a KindParse error.
func Parse(msg string, err error) *Error {
	return &Error{Kind: KindParse, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err's chain contains an *Error of kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
