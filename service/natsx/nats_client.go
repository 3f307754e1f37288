package natsx

import (
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"PRelay/logger"
	"PRelay/tools/errs"
)

// NatsxMode selects the delivery discipline of a route.
type NatsxMode int

const (
	Core          NatsxMode = iota // no persistence
	JetStreamPush                  // JS push subscription
	JetStreamPull                  // JS pull subscription
)

// NatsxRoute binds a business name to a subject and mode. Producers
// and consumers address routes by Biz, never by raw subject.
type NatsxRoute struct {
	Biz           string
	Subject       string
	Mode          NatsxMode
	Queue         string // queue group (Core / JS push)
	Durable       string // JS durable name, set it for anything that must survive restarts
	AckWait       time.Duration
	MaxAckPending int
}

type NatsxConfig struct {
	Servers         []string
	Name            string
	Username        string
	Password        string
	ReconnectWait   time.Duration
	Timeout         time.Duration
	PublishAsyncMax int
}

type NatsxClient struct {
	cfg NatsxConfig
	nc  *nats.Conn
	js  nats.JetStreamContext

	mu     sync.RWMutex
	routes map[string]NatsxRoute         // biz -> route
	subs   map[string]*nats.Subscription // biz -> sub
}

func NewNatsxClient(cfg NatsxConfig) (*NatsxClient, error) {
	if len(cfg.Servers) == 0 {
		return nil, errs.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.PublishAsyncMax == 0 {
		cfg.PublishAsyncMax = 4096
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "connect nats", "servers", strings.Join(cfg.Servers, ","))
	}
	return &NatsxClient{
		cfg:    cfg,
		nc:     nc,
		routes: make(map[string]NatsxRoute),
		subs:   make(map[string]*nats.Subscription),
	}, nil
}

// Close drains subscriptions first so in-flight messages finish.
func (c *NatsxClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for biz, sub := range c.subs {
		_ = sub.Drain()
		delete(c.subs, biz)
	}
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

func (c *NatsxClient) ensureJS() error {
	if c.js != nil {
		return nil
	}
	js, err := c.nc.JetStream(nats.PublishAsyncMaxPending(c.cfg.PublishAsyncMax))
	if err != nil {
		return errs.WrapMsg(err, "init jetstream")
	}
	c.js = js
	return nil
}

// EnsureStream creates the stream when it does not exist yet. The
// duplicate window is what makes PublishOnce deduplicate.
func (c *NatsxClient) EnsureStream(name string, subjects []string) error {
	if err := c.ensureJS(); err != nil {
		return err
	}
	_, err := c.js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return errs.WrapMsg(err, "stream info", "stream", name)
	}
	_, err = c.js.AddStream(&nats.StreamConfig{
		Name:       name,
		Subjects:   subjects,
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return errs.WrapMsg(err, "add stream", "stream", name)
	}
	logger.Infof("[natsx] stream created: %s subjects=%v", name, subjects)
	return nil
}

func (c *NatsxClient) RegisterRoute(r NatsxRoute) error {
	if r.Biz == "" || r.Subject == "" {
		return errs.New("invalid route", "biz", r.Biz)
	}
	if r.Mode == JetStreamPush || r.Mode == JetStreamPull {
		if err := c.ensureJS(); err != nil {
			return err
		}
	}
	if r.AckWait == 0 {
		r.AckWait = 30 * time.Second
	}
	if r.MaxAckPending == 0 {
		r.MaxAckPending = 1024
	}
	c.mu.Lock()
	c.routes[r.Biz] = r
	c.mu.Unlock()
	return nil
}

func (c *NatsxClient) route(biz string) (NatsxRoute, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.routes[biz]
	return r, ok
}
