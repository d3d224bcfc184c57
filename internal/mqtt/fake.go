package mqtt

import "fmt"

// Sent is a message as it would have reached the broker.
type Sent struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// FakePublisher records what a RealPublisher would send, using the same
// topics, QoS and retain flags. Not safe for concurrent use.
type FakePublisher struct {
	Events       []Event
	SystemEvents []SystemEvent

	// Sent holds every message in publish order, both topics interleaved.
	Sent []Sent

	// PublishError and PublishSystemError, when set, fail the matching call
	// before anything is recorded.
	PublishError       error
	PublishSystemError error

	// Connected is returned by IsConnected.
	Connected bool
	Closed    bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	msg, err := buttonMessage(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.record(msg)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	msg, err := systemMessage(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.record(msg)
	return nil
}

func (f *FakePublisher) record(msg outMsg) {
	f.Sent = append(f.Sent, Sent{Topic: msg.topic, Payload: msg.payload, QoS: msg.qos, Retained: msg.retained})
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Payloads returns the payloads sent to topic, oldest first.
func (f *FakePublisher) Payloads(topic string) [][]byte {
	var out [][]byte
	for _, s := range f.Sent {
		if s.Topic == topic {
			out = append(out, s.Payload)
		}
	}
	return out
}

// Summary lists recorded button events as "KIND BUTTON" strings.
func (f *FakePublisher) Summary() []string {
	out := make([]string, len(f.Events))
	for i, e := range f.Events {
		out[i] = fmt.Sprintf("%s %s", e.Kind, e.Button)
	}
	return out
}
