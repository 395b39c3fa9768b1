// Package apperr defines the closed set of classified failures that may
// cross the product service boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Type is the category of a failure.
type Type string

const (
	TypeBusiness  Type = "BUSINESS"
	TypeSecurity  Type = "SECURITY"
	TypeTechnical Type = "TECHNICAL"
)

// Severity controls how verbosely a failure is logged. It never affects
// control flow.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Code is an immutable failure definition.
type Code struct {
	Key      string
	Label    string
	Status   int
	Type     Type
	Severity Severity
}

var (
	InvalidInputData = Code{
		Key:      "SB_PL_INVALID_INPUT_DATA",
		Label:    "Invalid input data.",
		Status:   http.StatusBadRequest,
		Type:     TypeBusiness,
		Severity: SeverityWarn,
	}
	InvalidProductID = Code{
		Key:      "INVALID_PRODUCT_ID",
		Label:    "Product Id parameter is not valid",
		Status:   http.StatusBadRequest,
		Type:     TypeBusiness,
		Severity: SeverityWarn,
	}
	ProductAlreadyExists = Code{
		Key:      "SB_PL_PRODUCT_ALREADY_EXISTS",
		Label:    "Product already exists.",
		Status:   http.StatusConflict,
		Type:     TypeBusiness,
		Severity: SeverityWarn,
	}
	Unauthorized = Code{
		Key:      "SB_PL_UNAUTHORIZED",
		Label:    "Unauthorized access.",
		Status:   http.StatusUnauthorized,
		Type:     TypeSecurity,
		Severity: SeverityWarn,
	}
	Forbidden = Code{
		Key:      "SB_PL_FORBIDDEN",
		Label:    "Access denied.",
		Status:   http.StatusForbidden,
		Type:     TypeSecurity,
		Severity: SeverityWarn,
	}
	DatabaseError = Code{
		Key:      "SB_PL_DATABASE_ERROR",
		Label:    "Database error occurred.",
		Status:   http.StatusInternalServerError,
		Type:     TypeTechnical,
		Severity: SeverityError,
	}
	ServiceUnavailable = Code{
		Key:      "SB_PL_SERVICE_UNAVAILABLE",
		Label:    "Service temporarily unavailable.",
		Status:   http.StatusServiceUnavailable,
		Type:     TypeTechnical,
		Severity: SeverityError,
	}
)

// Codes returns every classified failure, in definition order.
func Codes() []Code {
	return []Code{
		InvalidInputData,
		InvalidProductID,
		ProductAlreadyExists,
		Unauthorized,
		Forbidden,
		DatabaseError,
		ServiceUnavailable,
	}
}

// Lookup finds a code by its key.
func Lookup(key string) (Code, bool) {
	for _, c := range Codes() {
		if c.Key == key {
			return c, true
		}
	}
	return Code{}, false
}

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Code Code
	Err  error
}

// New creates a classified failure without a cause.
func New(code Code) *Error {
	return &Error{Code: code}
}

// Wrap classifies err under code.
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code.Key, e.Code.Label)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code.Key, e.Code.Label, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code key.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code.Key == e.Code.Key
}

// From extracts the classified failure from err's chain.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	appErr, ok := From(err)
	return ok && appErr.Code.Key == code.Key
}
