package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig      Category = "config"
	CategoryCollision   Category = "collision"
	CategoryPlaceholder Category = "placeholder"
	CategoryIO          Category = "io"
	CategoryRender      Category = "render"
)

// Category sentinels for use with errors.Is.
var (
	ErrConfiguration = stderrors.New("configuration error")
	ErrCollision     = stderrors.New("collision error")
	ErrPlaceholder   = stderrors.New("placeholder error")
	ErrIO            = stderrors.New("io error")
	ErrRender        = stderrors.New("render error")
)

var sentinels = map[Category]error{
	CategoryConfig:      ErrConfiguration,
	CategoryCollision:   ErrCollision,
	CategoryPlaceholder: ErrPlaceholder,
	CategoryIO:          ErrIO,
	CategoryRender:      ErrRender,
}

// Subject identifies what an error is about.
type Subject struct {
	Path   string
	URL    string
	Option string
}

// String returns the subject as "kind: value" pairs.
func (s Subject) String() string {
	var parts []string
	if s.Option != "" {
		parts = append(parts, "option: "+s.Option)
	}
	if s.URL != "" {
		parts = append(parts, "url: "+s.URL)
	}
	if s.Path != "" {
		parts = append(parts, "path: "+s.Path)
	}
	return strings.Join(parts, ", ")
}

// IsZero reports whether no subject field is set.
func (s Subject) IsZero() bool {
	return s.Path == "" && s.URL == "" && s.Option == ""
}

// PrecacheError is a structured error with a subject and a fix suggestion.
type PrecacheError struct {
	// Code is a unique error identifier (e.g., "E300").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Subject names the offending path, URL, or option.
	Subject Subject

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PrecacheError) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if !e.Subject.IsZero() {
		b.WriteString(" (")
		b.WriteString(e.Subject.String())
		b.WriteString(")")
	}
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PrecacheError) Unwrap() error {
	return e.Wrapped
}

// Is matches the category sentinel of the error.
func (e *PrecacheError) Is(target error) bool {
	s, ok := sentinels[e.Category]
	return ok && s == target
}

// WithPath records the offending file path.
func (e *PrecacheError) WithPath(path string) *PrecacheError {
	e.Subject.Path = path
	return e
}

// WithURL records the offending manifest URL.
func (e *PrecacheError) WithURL(url string) *PrecacheError {
	e.Subject.URL = url
	return e
}

// WithOption records the offending configuration option.
func (e *PrecacheError) WithOption(name string) *PrecacheError {
	e.Subject.Option = name
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *PrecacheError) WithSuggestion(s string) *PrecacheError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *PrecacheError) WithDetail(d string) *PrecacheError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *PrecacheError) Wrap(err error) *PrecacheError {
	e.Wrapped = err
	return e
}

// New creates a PrecacheError from a registered error code.
func New(code string) *PrecacheError {
	template, ok := registry[code]
	if !ok {
		return &PrecacheError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PrecacheError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new PrecacheError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *PrecacheError {
	return &PrecacheError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a PrecacheError.
// A PrecacheError anywhere in the chain is returned as-is.
func FromError(err error, code string) *PrecacheError {
	if err == nil {
		return nil
	}
	var pe *PrecacheError
	if stderrors.As(err, &pe) {
		return pe
	}
	return New(code).Wrap(err)
}

// As is a shortcut for extracting a PrecacheError from an error chain.
func As(err error) (*PrecacheError, bool) {
	var pe *PrecacheError
	ok := stderrors.As(err, &pe)
	return pe, ok
}
