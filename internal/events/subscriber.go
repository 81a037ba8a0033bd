package events

import (
	"encoding/json"
	"fmt"
)

// Message is one event received from the bus.
type Message struct {
	Topic string
	Data  []byte
}

// Decode unmarshals the event payload into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decoding %s event: %w", m.Topic, err)
	}
	return nil
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers events matching pattern on the returned channel.
	// The returned cancel function unsubscribes and closes the channel.
	Subscribe(pattern string) (<-chan Message, func(), error)
	Close() error
}
