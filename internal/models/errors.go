package models

import "errors"

// Error taxonomy shared by all services. Handlers map these to HTTP codes
// via response.FromError; wrap with fmt.Errorf("%w: ...") and match with
// errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state")
	ErrUpstream     = errors.New("upstream failure")
)
