package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"transferledger/internal/events"
)

// publish sends an event after a commit. Delivery failures are logged and
// never change the outcome of the operation that produced the event.
func publish(ctx context.Context, publisher events.Publisher, logger logrus.FieldLogger, eventType string, payload any) {
	if publisher == nil {
		return
	}

	event := events.Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": eventType,
		}).Warn("event publish failed")
	}
}
