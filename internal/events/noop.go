package events

import "context"

// NoopPublisher drops every event. Servers and forms use it when no NATS URL
// is configured.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }
