// Package validation provides structured validation error handling
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// Error represents a validation error with field-specific details
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors represents multiple validation errors
type Errors []Error

// Error implements the error interface
func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	var messages []string
	for _, err := range ve {
		if err.Field != "" {
			messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
		} else {
			messages = append(messages, err.Message)
		}
	}

	return strings.Join(messages, "; ")
}

// Add adds a validation error
func (ve *Errors) Add(field, message string) {
	*ve = append(*ve, Error{Field: field, Message: message})
}

// AddIf adds err when it is not nil
func (ve *Errors) AddIf(err *Error) {
	if err != nil {
		ve.Add(err.Field, err.Message)
	}
}

// HasErrors returns true if there are validation errors
func (ve Errors) HasErrors() bool {
	return len(ve) > 0
}

// Err returns ve as an error, or nil when empty
func (ve Errors) Err() error {
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// ValidateRequired checks if a value is not empty
func ValidateRequired(value string, fieldName string) *Error {
	if strings.TrimSpace(value) == "" {
		return &Error{
			Field:   fieldName,
			Message: "is required",
		}
	}
	return nil
}

// ValidateHTTPURL checks that value is an absolute http or https URL
func ValidateHTTPURL(value string, fieldName string) *Error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &Error{
			Field:   fieldName,
			Message: "must be an absolute http(s) URL",
		}
	}
	return nil
}
