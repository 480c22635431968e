package boardlink

import "errors"

var (
	ErrNotConnected     = errors.New("not connected")
	ErrTransport        = errors.New("transport failure")
	ErrParse            = errors.New("malformed command frame")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrUnknownChannel   = errors.New("unknown channel")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrRoleCapability   = errors.New("command not supported by board role")
	ErrPeerBusy         = errors.New("peer already attached")
)
