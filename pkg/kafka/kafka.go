package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	InteractionTopic         = "readzone.interactions"
	InteractionConsumerGroup = "readzone-interaction-recount"
)

type Config struct {
	Enable bool     `yaml:"enable" envconfig:"KAFKA_ENABLE"`
	Addrs  []string `yaml:"addrs" envconfig:"KAFKA_ADDRS" default:"localhost:9092"`
}

func NewAsyncProducer(cfg Config) (sarama.AsyncProducer, error) {
	defaultCfg := sarama.NewConfig()
	defaultCfg.Producer.RequiredAcks = sarama.WaitForLocal
	defaultCfg.Producer.Return.Successes = false
	defaultCfg.Producer.Return.Errors = true
	defaultCfg.Producer.Flush.Frequency = time.Millisecond * 500

	return sarama.NewAsyncProducer(cfg.Addrs, defaultCfg)
}

func NewConsumer(cfg Config, group string) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()
	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	defaultCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	return sarama.NewConsumerGroup(cfg.Addrs, group, defaultCfg)
}

// Consume runs the consumer group session loop until ctx is done or the group is closed.
func Consume(ctx context.Context, group sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, log *zap.Logger, topics ...string) {
	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			log.Error("group.Consume", zap.Error(err), zap.Strings("topics", topics))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// DrainErrors logs producer errors until the producer is closed.
func DrainErrors(producer sarama.AsyncProducer, log *zap.Logger) {
	for err := range producer.Errors() {
		log.Warn("kafka produce", zap.Error(err.Err), zap.String("topic", err.Msg.Topic))
	}
}
