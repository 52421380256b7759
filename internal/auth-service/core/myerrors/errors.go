package myerrors

import "errors"

var (
	ErrEmailRegistered = errors.New("email already registered")
	ErrUnknownEmail    = errors.New("unknown email")
	ErrBadCredentials  = errors.New("bad credentials")
	ErrInvalidInput    = errors.New("invalid input")
)
