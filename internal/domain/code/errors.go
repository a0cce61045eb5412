package code

import "errors"

var (
	// ErrAllocation indicates the code counter could not be advanced.
	ErrAllocation = errors.New("code allocation failed")
	// ErrInvalidInput indicates a malformed generation or standardization request.
	ErrInvalidInput = errors.New("invalid input")
)
