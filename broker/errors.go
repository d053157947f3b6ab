package broker

import "errors"

var (
	ErrMissingRoutingField = errors.New("message has no client_id routing field")
	ErrRecordInvalid       = errors.New("invalid broker record")
	ErrConsumerRunning     = errors.New("consumer already running")
	ErrNotInitialized      = errors.New("broker client not initialized")
)
