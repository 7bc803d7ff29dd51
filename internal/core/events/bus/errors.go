package bus

import "errors"

var (
	ErrInvalidEventType = errors.New("invalid event type")
	ErrNilHandler       = errors.New("nil event handler")
)
