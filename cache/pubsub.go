package cache

import (
	"context"

	"encore.dev/pubsub"
)

// RefreshCompletedTopic carries one RefreshCompletedEvent per finished
// refresh batch. Declared at package scope the way
// cache-manager/subscriptions.go declares its topics, since Encore
// resolves pubsub infrastructure at compile time from exactly this shape.
var RefreshCompletedTopic = pubsub.NewTopic[*RefreshCompletedEvent]("cache-refresh-completed", pubsub.TopicConfig{
	DeliveryGuarantee: pubsub.AtLeastOnce,
})

// NewPubSubEventPublisher adapts RefreshCompletedTopic to EventPublisher,
// for Coordinators that want refresh completions to flow through
// Encore's pubsub infrastructure instead of (or alongside) metrics.
func NewPubSubEventPublisher() EventPublisher {
	return pubsubEventPublisher{}
}

type pubsubEventPublisher struct{}

func (pubsubEventPublisher) PublishRefreshCompleted(ctx context.Context, evt RefreshCompletedEvent) error {
	_, err := RefreshCompletedTopic.Publish(ctx, &evt)
	return err
}
