package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Producer defines the interface for message queue producers
type Producer interface {
	Produce(ctx context.Context, topic string, key string, data interface{}) error
	Close()
}

// LogProducer is used when the message queue is disabled: samples are written to the log instead
type LogProducer struct {
	logger *zap.Logger
}

var _ Producer = (*LogProducer)(nil)

func NewLogProducer(logger *zap.Logger) *LogProducer {
	return &LogProducer{logger: logger}
}

func (p *LogProducer) Produce(ctx context.Context, topic string, key string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	p.logger.Info("Sample", zap.String("topic", topic), zap.String("key", key), zap.ByteString("payload", body))
	return nil
}

func (p *LogProducer) Close() {}
