package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger logrus.FieldLogger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"payload":    event.Payload,
	}).Info("event published")
	return nil
}

// Ensure publishers implement Publisher.
var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*AMQPPublisher)(nil)
)
