package mqtt

import "log/slog"

// outMsg is a serialized message waiting for the broker.
type outMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable, oldest
// first. When full it evicts the oldest button event before touching
// retained lifecycle messages, so STARTUP and friends survive a long outage.
// Not safe for concurrent use; caller must synchronize.
type outbox struct {
	msgs    []outMsg
	limit   int
	dropped int
	logger  *slog.Logger
}

func newOutbox(limit int, logger *slog.Logger) *outbox {
	if limit < 1 {
		limit = 1
	}
	return &outbox{
		msgs:   make([]outMsg, 0, limit),
		limit:  limit,
		logger: logger,
	}
}

func (o *outbox) add(msg outMsg) {
	if len(o.msgs) == o.limit {
		if o.dropped == 0 {
			o.logger.Warn("mqtt: outbox full, dropping messages", "limit", o.limit)
		}
		o.dropped++
		o.evict()
	}
	o.msgs = append(o.msgs, msg)
}

// evict removes the oldest unretained message, or the oldest message when
// every one is retained.
func (o *outbox) evict() {
	victim := 0
	for i, m := range o.msgs {
		if !m.retained {
			victim = i
			break
		}
	}
	o.msgs = append(o.msgs[:victim], o.msgs[victim+1:]...)
}

// takeAll empties the outbox and returns its messages in publish order.
func (o *outbox) takeAll() []outMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	if o.dropped > 0 {
		o.logger.Warn("mqtt: replaying outbox after overflow", "dropped", o.dropped)
	}
	out := o.msgs
	o.msgs = make([]outMsg, 0, o.limit)
	o.dropped = 0
	return out
}

func (o *outbox) size() int {
	return len(o.msgs)
}
