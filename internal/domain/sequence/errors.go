package sequence

import "errors"

// ErrAllocation indicates the serial counter could not be advanced or resynchronized.
var ErrAllocation = errors.New("serial allocation failed")
