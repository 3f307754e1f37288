package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

func ErrPanic(r any) error {
	if r == nil {
		return nil
	}
	err := &CodeError{
		Code:   ServerInternalError,
		Msg:    "panic",
		Detail: fmt.Sprint(r),
	}
	return errors.WithStack(err)
}
