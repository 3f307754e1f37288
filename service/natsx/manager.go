package natsx

import (
	"context"
	"time"

	"PRelay/tools/errs"
)

// NatsManager is the facade callers hold. One per process in
// practice, constructed at bootstrap and passed around explicitly.
type NatsManager struct {
	client   *NatsxClient
	producer *NatsxProducer
	consumer *NatsxConsumer
}

func NewNatsManager(cfg NatsxConfig, middlewares ...NatsxMiddleware) (*NatsManager, error) {
	c, err := NewNatsxClient(cfg)
	if err != nil {
		return nil, err
	}
	return &NatsManager{
		client:   c,
		producer: NewNatsxProducer(c),
		consumer: NewNatsxConsumer(c, middlewares...),
	}, nil
}

func (m *NatsManager) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *NatsManager) EnsureStream(name string, subjects []string) error {
	if m == nil || m.client == nil {
		return errs.New("manager not initialized")
	}
	return m.client.EnsureStream(name, subjects)
}

func (m *NatsManager) RegisterRoute(r NatsxRoute) error {
	if m == nil || m.client == nil {
		return errs.New("manager not initialized")
	}
	return m.client.RegisterRoute(r)
}

func (m *NatsManager) Publish(ctx context.Context, biz string, data []byte, hdr map[string]string) error {
	if m == nil || m.producer == nil {
		return errs.New("manager not initialized")
	}
	return m.producer.Publish(ctx, biz, data, hdr)
}

// PublishOnce publishes with JetStream dedup on msgID.
func (m *NatsManager) PublishOnce(ctx context.Context, biz string, data []byte, hdr map[string]string, msgID string) error {
	if m == nil || m.producer == nil {
		return errs.New("manager not initialized")
	}
	return m.producer.PublishOnce(ctx, biz, data, hdr, msgID)
}

func (m *NatsManager) Subscribe(biz string, h NatsxHandler) error {
	if m == nil || m.consumer == nil {
		return errs.New("manager not initialized")
	}
	return m.consumer.Subscribe(biz, h)
}

func (m *NatsManager) PullConsume(ctx context.Context, biz string, batch int, wait time.Duration, h NatsxHandler) error {
	if m == nil || m.consumer == nil {
		return errs.New("manager not initialized")
	}
	return m.consumer.PullConsume(ctx, biz, batch, wait, h)
}
