package errs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Error interface {
	Is(err error) bool
	Wrap() error
	WrapMsg(msg string, kv ...any) error
	error
}

func New(s string, kv ...any) Error {
	return &errorString{
		s: toString(s, kv),
	}
}

type errorString struct {
	s string
}

func (e *errorString) Is(err error) bool {
	if err == nil {
		return false
	}
	var t *errorString
	if !errors.As(err, &t) {
		return false
	}
	return e.s == t.s
}

func (e *errorString) Error() string {
	return e.s
}

func (e *errorString) Wrap() error {
	return Wrap(e)
}

func (e *errorString) WrapMsg(msg string, kv ...any) error {
	return WrapMsg(e, msg, kv...)
}

func NewErrorWrapper(err error, s string) error {
	return &errorWrapper{error: err, s: s}
}

type errorWrapper struct {
	error
	s string
}

func (e *errorWrapper) Error() string {
	return e.s + " " + e.error.Error()
}

func (e *errorWrapper) Unwrap() error {
	return e.error
}

func toString(s string, kv []any) string {
	if len(kv) == 0 {
		return s
	}
	var sb strings.Builder
	sb.WriteString(s)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprintf(" %v=%v", kv[i], kv[i+1]))
		} else {
			sb.WriteString(fmt.Sprintf(" %v", kv[i]))
		}
	}
	return sb.String()
}
