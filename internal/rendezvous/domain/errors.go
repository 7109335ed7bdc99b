package domain

import "errors"

// Errors returned by the state machine. The HTTP adapter maps every one of
// these to a 400 response; none of them are retried by the server.
var (
	ErrReservedPath     = errors.New("cannot send to reserved path")
	ErrMethodNotAllowed = errors.New("method not allowed on this path")
	ErrDuplicateSender  = errors.New("a sender is already connected on this path")
	ErrOverCapacity     = errors.New("too many receivers")
	ErrInvalidCapacity  = errors.New("n must be a positive integer")
)
