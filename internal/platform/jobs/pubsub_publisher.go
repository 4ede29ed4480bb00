package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/tourdesk/backoffice/internal/services"
)

// PubSubDeliveryPublisher publishes quote delivery jobs to a Pub/Sub topic consumed by the
// email and Zalo senders.
type PubSubDeliveryPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubDeliveryPublisher constructs a Pub/Sub backed delivery publisher.
func NewPubSubDeliveryPublisher(topic *pubsub.Topic) (*PubSubDeliveryPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub delivery publisher: topic is required")
	}
	return &PubSubDeliveryPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishQuoteDelivery enqueues a delivery message and returns the server assigned message id.
func (p *PubSubDeliveryPublisher) PublishQuoteDelivery(ctx context.Context, message services.QuoteDeliveryMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub delivery publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal quote delivery: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "quoteId", message.QuoteID)
	setAttr(attrs, "quoteNumber", message.QuoteNumber)
	setAttr(attrs, "channel", string(message.Channel))

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish quote delivery: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
