package dal

import (
	"errors"
	"fmt"
)

// ErrNotFound – the requested item does not exist
var ErrNotFound = errors.New("dal: item not found")

// ErrConditionFailed – a conditional update's existence precondition failed.
// Kept distinct from ErrNotFound because it originates from the backend's
// condition check rather than from an empty read.
var ErrConditionFailed = errors.New("dal: condition failed")

// DecodeError reports a stored item (or an encode input) that does not match
// the record type's declared shape: missing pk/sk, missing sort-key prefix,
// or an unparseable sort-key value.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dal: decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("dal: decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
