package core

import "context"

type (
	SMSMessage struct {
		To   string
		Body string
	}

	// SMSService is any service that can send text messages
	SMSService interface {
		// SendMessages sends messages concurrently and reports the first failure.
		SendMessages(ctx context.Context, messages ...*SMSMessage) error
	}
)
