package retention

import "errors"

// Sentinel kinds for retention errors.
var (
	ErrUnknownWindow = errors.New("unknown retention window")
)
