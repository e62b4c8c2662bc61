package cache

import "context"

// RefreshCompletedEvent is published after a background or bulk refresh
// chunk whose source load succeeded has been written back, for callers who
// want to observe cache health without scraping metrics. KeyCount is the
// size of that chunk. A chunk served entirely from fresh L2 entries, or
// whose source load failed, publishes nothing, and BulkPreload publishes
// nothing.
type RefreshCompletedEvent struct {
	CacheName string
	KeyCount  int
}

// EventPublisher is the optional observability hook a Coordinator
// publishes refresh completions to. pubsubEventPublisher below adapts an
// encore.dev/pubsub topic to this interface, the same way
// cache-manager/subscriptions.go wraps a pubsub.Topic for RefreshEvent;
// a Coordinator built without one simply skips publishing.
type EventPublisher interface {
	PublishRefreshCompleted(ctx context.Context, evt RefreshCompletedEvent) error
}
