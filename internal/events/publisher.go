package events

import "context"

// Publisher delivers replay events to an external consumer.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}
