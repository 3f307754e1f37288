package offline

import (
	"context"
	"encoding/json"
	"time"

	"PRelay/logger"
	"PRelay/service/natsx"
	"PRelay/service/relay"
	"PRelay/tools/errs"
)

// BizIngest is the natsx route name for the offline message stream.
const BizIngest = "offline.ingest"

// RegisterRoute binds the ingest subject to a durable pull consumer.
func RegisterRoute(nm *natsx.NatsManager, subject, durable string) error {
	return nm.RegisterRoute(natsx.NatsxRoute{
		Biz:     BizIngest,
		Subject: subject,
		Mode:    natsx.JetStreamPull,
		Durable: durable,
	})
}

// Worker drains the offline stream into the per-room backlogs.
type Worker struct {
	nm      *natsx.NatsManager
	backlog *Backlog
	batch   int
	wait    time.Duration
}

func NewWorker(nm *natsx.NatsManager, backlog *Backlog) *Worker {
	return &Worker{nm: nm, backlog: backlog, batch: 64, wait: 500 * time.Millisecond}
}

// Run blocks pulling batches until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	logger.Infof("[offline] worker started, biz=%s batch=%d", BizIngest, w.batch)
	return w.nm.PullConsume(ctx, BizIngest, w.batch, w.wait, w.HandleMessage)
}

// HandleMessage stores one stream entry. Undecodable entries are acked
// and dropped, a poison message must not wedge the consumer.
func (w *Worker) HandleMessage(ctx context.Context, msg natsx.NatsxMessage) error {
	m, err := decodeIngest(msg.Data)
	if err != nil {
		logger.Warnf("[offline] drop bad ingest entry: %v", err)
		return nil
	}
	if err := w.backlog.Push(ctx, m); err != nil {
		return err
	}
	logger.Debugf("[offline] backlogged msg=%s room=%s", m.ID, m.RoomID)
	return nil
}

func decodeIngest(data []byte) (relay.ChatMessage, error) {
	var m relay.ChatMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return relay.ChatMessage{}, errs.WrapMsg(err, "decode ingest entry")
	}
	if m.ID == "" || m.RoomID == "" {
		return relay.ChatMessage{}, errs.New("ingest entry missing message identity")
	}
	return m, nil
}
