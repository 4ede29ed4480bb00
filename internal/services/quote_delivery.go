package services

import (
	"context"
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
)

// QuoteDeliveryMessage is the job handed to the email and Zalo senders.
type QuoteDeliveryMessage struct {
	QuoteID      string                 `json:"quoteId"`
	QuoteNumber  string                 `json:"quoteNumber"`
	Channel      domain.DeliveryChannel `json:"channel"`
	Recipient    string                 `json:"recipient"`
	CustomerName string                 `json:"customerName,omitempty"`
	FinalTotal   int64                  `json:"finalTotal"`
	RequestedBy  string                 `json:"requestedBy,omitempty"`
	RequestedAt  time.Time              `json:"requestedAt"`
}

// QuoteDeliveryPublisher enqueues delivery jobs and returns the broker message id.
type QuoteDeliveryPublisher interface {
	PublishQuoteDelivery(ctx context.Context, message QuoteDeliveryMessage) (string, error)
}

// logOnlyDeliveryPublisher stands in when no delivery topic is configured.
type logOnlyDeliveryPublisher struct {
	logger func(context.Context, string, map[string]any)
}

func (p logOnlyDeliveryPublisher) PublishQuoteDelivery(ctx context.Context, message QuoteDeliveryMessage) (string, error) {
	p.logger(ctx, "quote.delivery.skipped", map[string]any{
		"quoteId":     message.QuoteID,
		"quoteNumber": message.QuoteNumber,
		"channel":     string(message.Channel),
		"reason":      "delivery topic not configured",
	})
	return "", nil
}

func deliveryRecipient(customer domain.Customer, channel domain.DeliveryChannel) string {
	if channel == domain.DeliveryChannelZalo {
		if customer.Zalo != "" {
			return customer.Zalo
		}
		return customer.Phone
	}
	return customer.Email
}
