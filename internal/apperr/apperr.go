// Package apperr defines the error codes carried in GraphQL error extensions.
// The server attaches them to resolver errors and the client reads them back,
// so both sides share this package.
package apperr

import (
	"errors"
	"fmt"
)

// Code is the value of extensions.code on a GraphQL error.
type Code string

const (
	Authorization          Code = "AUTHORIZATION"
	Conflict               Code = "CONFLICT"
	NotFound               Code = "NOT_FOUND"
	LanguageUndetermined   Code = "LANGUAGE_UNDETERMINED"
	UnnecessaryWhitespaces Code = "UNNECESSARY_WHITESPACES"
	Unauthenticated        Code = "UNAUTHENTICATED"
	BadUserInput           Code = "BAD_USER_INPUT"
	Internal               Code = "INTERNAL_SERVER_ERROR"
)

// Error is an error with a code. It satisfies graphql-go's ResolverError
// through Extensions.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extensions is read by graphql-go when rendering the error.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Code)}
}

// New creates a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying error.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func Unauthenticatedf(format string, args ...any) *Error {
	return New(Unauthenticated, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(Authorization, format, args...)
}

func Missing(kind, id string) *Error {
	return New(NotFound, "%s %s not found", kind, id)
}

func BadInput(format string, args ...any) *Error {
	return New(BadUserInput, format, args...)
}
