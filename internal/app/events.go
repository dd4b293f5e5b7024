package app

import (
	"github.com/sirupsen/logrus"

	"transferledger/internal/config"
	"transferledger/internal/events"
)

// NewPublisher connects the settlement event publisher. Without a RabbitMQ
// URL events are only logged. The returned close func is never nil.
func NewPublisher(cfg config.RabbitMQConfig, logger logrus.FieldLogger) (events.Publisher, func() error, error) {
	if cfg.URL == "" {
		logger.Info("RABBITMQ_URL not set, settlement events are logged only")
		return events.NewLogPublisher(logger), func() error { return nil }, nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange, cfg.PublishTimeout)
	if err != nil {
		return nil, nil, err
	}
	return publisher, publisher.Close, nil
}
