package natsx

import (
	"context"

	"PRelay/tools/errs"
)

type NatsxProducer struct{ c *NatsxClient }

func NewNatsxProducer(c *NatsxClient) *NatsxProducer { return &NatsxProducer{c: c} }

// Publish sends on the subject the biz route names.
func (p *NatsxProducer) Publish(ctx context.Context, biz string, data []byte, hdr map[string]string) error {
	r, ok := p.c.route(biz)
	if !ok {
		return errs.New("route not found", "biz", biz)
	}
	switch r.Mode {
	case Core:
		return p.c.sendCore(r.Subject, data, hdr)
	case JetStreamPush, JetStreamPull:
		return p.c.sendJS(ctx, r.Subject, data, hdr)
	default:
		return errs.New("unsupported mode", "biz", biz)
	}
}
