package tenant

import "errors"

var (
	ValidationFailedErr    = errors.New("tenant domain validation failed")
	DomainNotRegisteredErr = errors.New("tenant domain is not registered")
	InvalidResponseErr     = errors.New("invalid tenant validation response")
)
