package progress

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so the HTTP boundary can map them to
// statuses without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindValidation
	KindUnsupported
)

type Error struct {
	Kind Kind
	Msg  string
	// BlockingCourseID names the unmet prerequisite on Forbidden errors.
	BlockingCourseID string
}

func (e *Error) Error() string { return e.Msg }

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(reason, blockingCourseID string) error {
	return &Error{Kind: KindForbidden, Msg: reason, BlockingCourseID: blockingCourseID}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Unsupportedf(format string, args ...any) error {
	return &Error{Kind: KindUnsupported, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the classification of err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// AsEngineError unwraps err into *Error when possible.
func AsEngineError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
