package compiler

import "errors"

// ErrInvalidModel is returned when the root model cannot be resolved.
var ErrInvalidModel = errors.New("invalid query model")
