package protocol

import "errors"

var (
	ErrTruncated     = errors.New("protocol: truncated data")
	ErrInvalidLength = errors.New("protocol: invalid length")
	ErrBadMarker     = errors.New("protocol: bad diagnostic marker")
)
