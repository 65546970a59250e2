package model

import (
	"errors"
	"fmt"
)

// Error kinds raised while rendering a page.
var (
	ErrNotFound  = errors.New("not found")
	ErrConfig    = errors.New("configuration error")
	ErrParse     = errors.New("parse error")
	ErrRecursion = errors.New("recursive render")
	ErrAbort     = errors.New("output aborted")
)

// TemplateError attaches the offending name (template, tag or skin) to an
// error kind.
type TemplateError struct {
	Kind error
	Name string
	Err  error
}

func (e *TemplateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Name)
}

// Is matches the error kind, so errors.Is(err, ErrNotFound) works.
func (e *TemplateError) Is(target error) bool { return e.Kind == target }

func (e *TemplateError) Unwrap() error { return e.Err }

// NotFound reports a template that no stack entry could provide.
func NotFound(name string, err error) error {
	return &TemplateError{Kind: ErrNotFound, Name: name, Err: err}
}

// ConfigErr reports an invalid skin setup.
func ConfigErr(name string, err error) error {
	return &TemplateError{Kind: ErrConfig, Name: name, Err: err}
}

// ParseErr reports a malformed tag.
func ParseErr(tag string, err error) error {
	return &TemplateError{Kind: ErrParse, Name: tag, Err: err}
}
