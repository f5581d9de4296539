package contract

import "errors"

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNilTurn       = errors.New("turn is nil")
)
