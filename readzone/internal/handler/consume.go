package handler

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

type recount func(ctx context.Context, reviewID int64) error

// Consumer repairs review counters from like and bookmark events.
type Consumer struct {
	recountHandler recount
	log            *zap.Logger
}

func NewConsumer(recount recount, log *zap.Logger) *Consumer {
	return &Consumer{
		recountHandler: recount,
		log:            log.Named("consumer"),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Debug("message channel was closed")
				return nil
			}
			if consumer.handle(session.Context(), message) {
				session.MarkMessage(message, "")
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle reports whether the message is done with and can be committed.
func (consumer *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) bool {
	var ev model.InteractionEvent
	if err := json.Unmarshal(message.Value, &ev); err != nil {
		consumer.log.Error("decode event", zap.Error(err), zap.Int64("offset", message.Offset))
		return true
	}
	switch ev.Type {
	case model.EventLiked, model.EventUnliked, model.EventBookmarked, model.EventUnbookmarked:
	default:
		return true
	}
	if ev.ReviewID == 0 {
		return true
	}

	if err := consumer.recountHandler(ctx, ev.ReviewID); err != nil {
		if errs.TypeOf(err) == errs.NotFound {
			return true
		}
		consumer.log.Error("consumer.recountHandler", zap.Error(err), zap.Int64("review", ev.ReviewID))
		return false
	}
	consumer.log.Debug("event consumed", zap.String("type", string(ev.Type)), zap.Int64("review", ev.ReviewID), zap.Time("timestamp", message.Timestamp))
	return true
}
