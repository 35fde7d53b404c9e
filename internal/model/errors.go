package model

import "errors"

// ErrInvalid marks input that violates a record invariant or a closed enumeration.
var ErrInvalid = errors.New("invalid")
