package service

import "errors"

// ValidationError is a rejected form submission. Nothing was written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// AsValidation unwraps err into a *ValidationError when it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

const (
	msgItemRequired   = "Item name is required."
	msgBadLocation    = "Location must be 1 to 3 digits followed by a capital letter, like 5A or 105B."
	msgUserRequired   = "Enter your name before submitting."
	msgActionRequired = "Choose Check Out or Check In."
	msgQtyTooSmall    = "Quantity must be at least 1."
	msgQtyTooLarge    = "Quantity is too large for this item."
)
