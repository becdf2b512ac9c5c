package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/echomatch/echomatch/internal/db"
	"github.com/echomatch/echomatch/internal/logger"
	"github.com/echomatch/echomatch/internal/repository"
)

// HistorySink consumes presence events and appends them to the durable
// listening-event log. It is the local stand-in for the warehouse side of
// the analytics pipeline and runs decoupled from the request path.
type HistorySink struct {
	history *repository.HistoryRepository
}

func NewHistorySink(history *repository.HistoryRepository) *HistorySink {
	return &HistorySink{history: history}
}

// Run subscribes to the topic and drains messages until the context is
// canceled. Malformed messages are acked and dropped; a store failure
// nacks so the message is redelivered.
func (s *HistorySink) Run(ctx context.Context, sub message.Subscriber, topic string) error {
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.handle(ctx, msg)
		}
	}()
	return nil
}

func (s *HistorySink) handle(ctx context.Context, msg *message.Message) {
	var event PresenceEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logger.Warn("dropping malformed presence event", "msg_id", msg.UUID, "err", err)
		msg.Ack()
		return
	}

	err := s.history.AppendListeningEvent(ctx, &db.ListeningEvent{
		UserID:     event.UserID,
		TrackID:    event.TrackID,
		TrackName:  event.TrackName,
		ArtistID:   event.ArtistID,
		ArtistName: event.ArtistName,
		Popularity: event.Popularity,
		Latitude:   event.Latitude,
		Longitude:  event.Longitude,
		CapturedAt: event.CapturedAt,
	})
	if err != nil {
		logger.Error("failed to append listening event", "msg_id", msg.UUID, "err", err)
		msg.Nack()
		return
	}
	msg.Ack()
}
