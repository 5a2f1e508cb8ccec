package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/model"
)

type Publisher interface {
	// Publish never fails the caller; delivery problems are logged.
	Publish(ctx context.Context, ev model.InteractionEvent)
}

func NewEvent(typ model.EventType, userID, reviewID, targetUserID int64) model.InteractionEvent {
	return model.InteractionEvent{
		ID:           uuid.NewString(),
		Type:         typ,
		UserID:       userID,
		ReviewID:     reviewID,
		TargetUserID: targetUserID,
		OccurredAt:   time.Now().UTC(),
	}
}

type kafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafkaPublisher(producer sarama.AsyncProducer, topic string, log *zap.Logger) *kafkaPublisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      log.Named("publisher"),
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, ev model.InteractionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event", zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(partitionKey(ev)),
		Value: sarama.ByteEncoder(data),
	}
	select {
	case p.producer.Input() <- msg:
	case <-ctx.Done():
		p.log.Warn("event dropped", zap.String("type", string(ev.Type)), zap.Error(ctx.Err()))
	}
}

// partitionKey keeps every event of one review on one partition.
func partitionKey(ev model.InteractionEvent) string {
	if ev.ReviewID != 0 {
		return "review:" + strconv.FormatInt(ev.ReviewID, 10)
	}
	return "user:" + strconv.FormatInt(ev.TargetUserID, 10)
}

type nopPublisher struct{}

func NewNopPublisher() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, model.InteractionEvent) {}
