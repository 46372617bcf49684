package graph

import (
	"errors"

	"homeapi-backend/dal"
	"homeapi-backend/models"
)

// Error codes surfaced in the "code" extension of GraphQL errors.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeConditionFailed = "CONDITION_FAILED"
	CodeBadInput        = "BAD_USER_INPUT"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeInternal        = "INTERNAL"
)

// Error is a resolver error with a machine-readable code. It satisfies the
// ExtendedError shape the GraphQL formatter looks for, so the code travels
// in the error's extensions.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Extensions marks the error as extended for the GraphQL error formatter.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

func notFound(msg string) *Error     { return &Error{Code: CodeNotFound, Message: msg} }
func badInput(msg string) *Error     { return &Error{Code: CodeBadInput, Message: msg} }
func forbidden(msg string) *Error    { return &Error{Code: CodeForbidden, Message: msg} }
func unauthorized(msg string) *Error { return &Error{Code: CodeUnauthorized, Message: msg} }

// wrapError classifies a storage or codec failure into a coded resolver
// error. Unknown failures stay internal and keep their message generic.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}

	var decodeErr *dal.DecodeError
	switch {
	case errors.Is(err, dal.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: "item not found", Err: err}
	case errors.Is(err, dal.ErrConditionFailed):
		return &Error{Code: CodeConditionFailed, Message: "item does not exist", Err: err}
	case errors.Is(err, models.ErrInvalidNodeID):
		return &Error{Code: CodeBadInput, Message: "invalid node id", Err: err}
	case errors.As(err, &decodeErr):
		return &Error{Code: CodeInternal, Message: "stored item is malformed", Err: err}
	default:
		return &Error{Code: CodeInternal, Message: "internal error", Err: err}
	}
}
