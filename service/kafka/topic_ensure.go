package kafka

import (
	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"PRelay/logger"
	"PRelay/tools/errs"
)

// EnsureTopic creates the topic if missing and grows its partition
// count if the broker has fewer than asked. Kafka can only add
// partitions, never remove them.
func EnsureTopic(admin sarama.ClusterAdmin, topic string, partitions int32, rf int16) error {
	descs, err := admin.DescribeTopics([]string{topic})
	if err != nil {
		return errs.WrapMsg(err, "describe topic", "topic", topic)
	}
	exists := len(descs) == 1 && descs[0].Err == sarama.ErrNoError

	if !exists {
		minISR := "1"
		if rf >= 3 {
			minISR = "2"
		}
		td := &sarama.TopicDetail{
			NumPartitions:     partitions,
			ReplicationFactor: rf,
			ConfigEntries: map[string]*string{
				"cleanup.policy":                 strPtr("delete"),
				"min.insync.replicas":            strPtr(minISR),
				"unclean.leader.election.enable": strPtr("false"),
				"compression.type":               strPtr("producer"),
			},
		}
		if err := admin.CreateTopic(topic, td, false); err != nil {
			var te *sarama.TopicError
			if errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists {
				logger.Infof("[kafka] topic exists (race): %s", topic)
				return nil
			}
			if errors.Is(err, sarama.ErrTopicAlreadyExists) {
				logger.Infof("[kafka] topic exists (race): %s", topic)
				return nil
			}
			return errs.WrapMsg(err, "create topic", "topic", topic)
		}
		logger.Infof("[kafka] topic created: %s (partitions=%d, rf=%d)", topic, partitions, rf)
		return nil
	}

	curParts := int32(len(descs[0].Partitions))
	if partitions > curParts {
		if err := admin.CreatePartitions(topic, partitions, nil, false); err != nil {
			return errs.WrapMsg(err, "expand partitions", "topic", topic)
		}
		logger.Infof("[kafka] partitions expanded: %s (%d -> %d)", topic, curParts, partitions)
	}
	return nil
}

func strPtr(s string) *string { return &s }
