package broker

import (
	"fmt"

	"gateway/internal/config"
	"gateway/internal/logger"
)

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumerFactory(cfg config.BrokerConfig, log logger.Logger) (ConsumerFactory, error) {
	switch cfg.Type {
	case "kafka":
		return func(topic string) Consumer {
			return NewKafkaConsumer(cfg.Kafka, topic, log)
		}, nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
