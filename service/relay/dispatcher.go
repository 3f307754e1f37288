package relay

import (
	"context"

	"PRelay/logger"
	"PRelay/tools/errs"
)

// Handler consumes one envelope kind arriving from other servers.
type Handler interface {
	Type() EnvelopeType
	Handle(ctx context.Context, env Envelope) error
}

type Dispatcher struct {
	handlers map[EnvelopeType]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EnvelopeType]Handler)}
}

// Register attaches h for its envelope kind. Registration happens at
// wiring time, before the first envelope arrives; last one wins.
func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

// Dispatch runs on the bus subscriber goroutine, so a panicking handler
// is turned into an error instead of taking the subscription down.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) (err error) {
	h, ok := d.handlers[env.Type]
	if !ok {
		return errs.New("no handler for envelope type", "type", env.Type.String()).Wrap()
	}
	defer func() {
		if r := recover(); r != nil {
			err = errs.ErrPanic(r)
		}
	}()
	return h.Handle(ctx, env)
}

func (d *Dispatcher) GetHandler(t EnvelopeType) Handler {
	h, ok := d.handlers[t]
	if !ok {
		logger.Infof("no handler for type=%v", t)
		return nil
	}
	return h
}
