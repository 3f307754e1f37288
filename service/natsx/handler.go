package natsx

import "context"

// NatsxMessage is the unified message shape handed to handlers.
type NatsxMessage struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

// NatsxHandler processes one message. A non-nil error naks the
// message on JetStream routes.
type NatsxHandler func(ctx context.Context, msg NatsxMessage) error

// NatsxMiddleware wraps handlers with cross-cutting concerns such as
// idempotency or metrics.
type NatsxMiddleware func(NatsxHandler) NatsxHandler

// NatsxChain applies middlewares right to left, so the first listed
// runs outermost.
func NatsxChain(h NatsxHandler, mws ...NatsxMiddleware) NatsxHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
