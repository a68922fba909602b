package dispatch

import "github.com/m-mizutani/goerr/v2"

// Dispatch errors
var (
	ErrUnresolvedChannel    = goerr.New("channel has no configured address")
	ErrRemoteDispatchFailed = goerr.New("remote dispatch failed")
)

// Context keys for error values
const (
	ChannelKey    = "channel"
	StatusCodeKey = "status_code"
	PayloadKey    = "payload"
)
