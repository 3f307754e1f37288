package natsx

import (
	"context"

	"github.com/nats-io/nats.go"

	"PRelay/logger"
	"PRelay/tools/errs"
)

func (c *NatsxClient) ToHeader(h map[string]string) nats.Header {
	if len(h) == 0 {
		return nil
	}
	hd := nats.Header{}
	for k, v := range h {
		hd.Add(k, v)
	}
	return hd
}

func (c *NatsxClient) sendCore(subject string, data []byte, hdr map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	if err := c.nc.PublishMsg(msg); err != nil {
		return errs.WrapMsg(err, "publish", "subject", subject)
	}
	return nil
}

func (c *NatsxClient) sendJS(ctx context.Context, subject string, data []byte, hdr map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	ack, err := c.js.PublishMsg(msg, nats.Context(ctx))
	if err != nil {
		return errs.WrapMsg(err, "js publish", "subject", subject)
	}
	logger.Debugf("[natsx] published stream=%s seq=%d", ack.Stream, ack.Sequence)
	return nil
}
