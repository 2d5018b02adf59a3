// Package services holds the management API's business logic. Every state
// change that observers care about is pushed through the relay Broadcaster
// after it has been stored.
package services

import "errors"

var ErrInvalidInput = errors.New("invalid input")
