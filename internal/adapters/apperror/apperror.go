package apperror

import "errors"

var (
	ErrNotFoundData       = errors.New("data not found")
	ErrEmailNotUnique     = errors.New("email not unique")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrUpstream           = errors.New("upstream service error")
	ErrInvalidInput       = errors.New("invalid input")
)
