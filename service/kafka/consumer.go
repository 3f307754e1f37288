package kafka

import (
	"context"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"PRelay/logger"
	"PRelay/tools/errs"
)

type ConsumerGroupHandler struct{}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	logger.Infof("[kafka] consumer group setup")
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Infof("[kafka] consumer group cleanup")
	return nil
}

// ConsumeClaim routes each record to its topic handler. Records are
// marked regardless of handler outcome, a poison message must not
// wedge the partition.
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		handler, err := GetHandler(msg.Topic)
		if err != nil {
			logger.Warnf("[kafka] no handler for topic %s", msg.Topic)
		} else if err := handler(msg.Topic, msg.Key, msg.Value); err != nil {
			logger.Errorf("[kafka] handler error topic=%s offset=%d: %v", msg.Topic, msg.Offset, err)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

// StartConsumerGroup blocks until ctx is cancelled, rejoining the
// group across rebalances.
func StartConsumerGroup(ctx context.Context, cfg Config, groupID string, topics []string) error {
	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, BuildBaseConfig(cfg))
	if err != nil {
		return errs.WrapMsg(err, "new consumer group", "groupId", groupID)
	}
	defer func() { _ = group.Close() }()

	go func() {
		for err := range group.Errors() {
			logger.Errorf("[kafka] consumer group error: %v", err)
		}
	}()

	handler := &ConsumerGroupHandler{}
	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			logger.Errorf("[kafka] consume error: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
