package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
)

// ErrClosed is returned when publishing to a closed sink.
var ErrClosed = errors.New("sink closed")

// DefaultTopic is the topic detections are published on.
const DefaultTopic = "detections"

// NewGoChannel creates the in-process pub/sub used to fan detections out.
func NewGoChannel(buffer int64) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: buffer},
		watermill.NopLogger{},
	)
}

// PubSub publishes detections as JSON messages on a watermill topic.
type PubSub struct {
	publisher message.Publisher
	topic     string
}

// NewPubSub creates a PubSub sink publishing to topic.
func NewPubSub(publisher message.Publisher, topic string) *PubSub {
	if topic == "" {
		topic = DefaultTopic
	}
	return &PubSub{publisher: publisher, topic: topic}
}

// Publish encodes result and publishes it under a fresh message UUID.
func (p *PubSub) Publish(result session.DetectionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal detection: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("label", result.Label)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish detection: %w", err)
	}
	return nil
}

// Subscribe consumes detections from topic until ctx is done, calling handle for
// each one. Undecodable messages are acked and skipped so they are not redelivered.
func Subscribe(ctx context.Context, subscriber message.Subscriber, topic string, logger *zap.Logger, handle func(session.DetectionResult)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topic == "" {
		topic = DefaultTopic
	}

	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			var result session.DetectionResult
			if err := json.Unmarshal(msg.Payload, &result); err != nil {
				logger.Warn("invalid detection message", zap.String("uuid", msg.UUID), zap.Error(err))
				msg.Ack()
				continue
			}
			handle(result)
			msg.Ack()
		}
	}()

	return nil
}
