// Package events carries each presence update onto the async fan-out
// queue for downstream analytics. Publishing is best-effort: a failure is
// logged and never blocks the real-time matching response.
package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/echomatch/echomatch/internal/logger"
	"github.com/echomatch/echomatch/internal/presence"
)

// PresenceEvent is the wire payload published per presence update.
type PresenceEvent struct {
	UserID     string  `json:"user_id"`
	TrackID    string  `json:"track_id,omitempty"`
	TrackName  string  `json:"track_name,omitempty"`
	ArtistID   string  `json:"artist_id,omitempty"`
	ArtistName string  `json:"artist_name,omitempty"`
	Popularity int     `json:"popularity,omitempty"`
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lng"`
	CapturedAt int64   `json:"timestamp"`
}

// Publisher fans presence updates out to the configured topic.
type Publisher struct {
	pub   message.Publisher
	topic string
}

func NewPublisher(pub message.Publisher, topic string) *Publisher {
	return &Publisher{pub: pub, topic: topic}
}

// PublishPresence serializes and publishes one presence sample. Errors are
// returned so the caller can log them, but callers must not fail the
// request on them.
func (p *Publisher) PublishPresence(sample *presence.Sample) error {
	event := PresenceEvent{
		UserID:     sample.UserID,
		TrackID:    sample.TrackID,
		TrackName:  sample.TrackName,
		ArtistID:   sample.ArtistID,
		ArtistName: sample.ArtistName,
		Popularity: sample.Popularity,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		CapturedAt: sample.CapturedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("user_id", sample.UserID)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return err
	}
	logger.Debug("published presence event", "topic", p.topic, "user_id", sample.UserID)
	return nil
}
