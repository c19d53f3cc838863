package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnknownToken     = errors.New("token not tracked")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrEngineActive     = errors.New("engine already active")
	ErrEngineInactive   = errors.New("engine not active")
	ErrWSDisconnect     = errors.New("websocket disconnected")
)
