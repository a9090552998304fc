package catalog

import (
	"errors"
	"fmt"

	"github.com/zynqcloud/catalog/internal/validate"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

// Error is a domain failure with a client-safe message.
type Error struct {
	Kind    error
	Msg     string
	Details []string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) *Error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

// invalid lifts a validator failure into the domain taxonomy; anything else
// passes through untouched.
func invalid(err error) error {
	var ve *validate.Error
	if errors.As(err, &ve) {
		return &Error{Kind: ErrValidation, Msg: ve.Msg, Details: ve.Details}
	}
	return err
}
