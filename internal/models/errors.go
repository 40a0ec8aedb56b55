package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for gateway entities.
var (
	// ErrChannelIDRequired indicates a required channel id field is empty.
	ErrChannelIDRequired = errors.New("id is required")

	// ErrChannelNameRequired indicates a required channel name field is empty.
	ErrChannelNameRequired = errors.New("name is required")

	// ErrChannelURLRequired indicates a required manifest URL field is empty.
	ErrChannelURLRequired = errors.New("url is required")

	// ErrUsernameRequired indicates a required username field is empty.
	ErrUsernameRequired = errors.New("username is required")

	// ErrPasswordRequired indicates a required password field is empty.
	ErrPasswordRequired = errors.New("password is required")

	// ErrStreamIDRequired indicates a required stream id field is empty.
	ErrStreamIDRequired = errors.New("stream_id is required")

	// ErrInvalidActivityKind indicates an activity event kind outside the known set.
	ErrInvalidActivityKind = errors.New("invalid activity kind: must be 'activated', 'evicted' or 'pipeline_error'")
)
