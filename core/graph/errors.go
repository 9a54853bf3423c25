package graph

import (
	"errors"
	"fmt"
)

// ValidationCode identifies which rule an input violated.
type ValidationCode string

const (
	CodeDuplicateID         ValidationCode = "duplicate_id"
	CodeInvalidID           ValidationCode = "invalid_id"
	CodeInvalidContent      ValidationCode = "invalid_content"
	CodeInvalidText         ValidationCode = "invalid_text"
	CodeInvalidAction       ValidationCode = "invalid_action"
	CodeDuplicateButtonText ValidationCode = "duplicate_button_text"
	CodeInvalidType         ValidationCode = "invalid_type"
)

// ValidationError reports user-correctable input problems. The message is
// safe to show verbatim to the user.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(code ValidationCode, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a dangling reference to a page, button, action or user.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func notFoundErr(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// AsValidation extracts a ValidationError from err if present.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsNotFound extracts a NotFoundError from err if present.
func AsNotFound(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}
