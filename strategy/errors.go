package strategy

import "errors"

// ErrUnknownStrategy indicates that a strategy name could not be resolved.
var ErrUnknownStrategy = errors.New("unknown assignment strategy")
