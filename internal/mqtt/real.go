package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures a RealPublisher.
type Options struct {
	Broker         string
	ClientID       string
	BufferSize     int // messages kept while the broker is unreachable
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// DefaultOptions returns the options used by the panel for broker.
func DefaultOptions(broker string) Options {
	return Options{
		Broker:         broker,
		ClientID:       "keypad-panel",
		BufferSize:     256,
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// pahoClient is the part of paho.Client the publisher uses.
type pahoClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed once it comes back.
type RealPublisher struct {
	client         pahoClient
	logger         *slog.Logger
	publishTimeout time.Duration

	mu       sync.Mutex
	outbox   *outbox
	connects int
	// replaying routes new messages through the outbox so they queue
	// behind the backlog being flushed.
	replaying bool
}

func newPublisher(client pahoClient, opts Options, logger *slog.Logger) *RealPublisher {
	return &RealPublisher{
		client:         client,
		logger:         logger,
		publishTimeout: opts.PublishTimeout,
		outbox:         newOutbox(opts.BufferSize, logger),
	}
}

// NewRealPublisher creates a publisher for the given broker. A broker that
// does not answer within ConnectTimeout is not an error: the client keeps
// retrying in the background and messages are buffered meanwhile.
func NewRealPublisher(opts Options, logger *slog.Logger) (*RealPublisher, error) {
	p := newPublisher(nil, opts, logger)

	will, err := FormatSystemPayload(SystemEvent{Event: "LWT", Reason: "CONNECTION_LOST"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { go p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt: connection lost", "error", err)
		})

	client := paho.NewClient(co)
	p.client = client

	token := client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		logger.Warn("mqtt: broker not reachable yet, buffering until connected", "broker", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// Publish sends a button event to the MQTT broker.
func (p *RealPublisher) Publish(event Event) error {
	msg, err := buttonMessage(event)
	if err != nil {
		return err
	}
	if err := p.send(msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	msg, err := systemMessage(event)
	if err != nil {
		return err
	}
	if err := p.send(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// buttonMessage addresses a button event: QoS 0, not retained. A missed
// keypress is stale by the time it could be redelivered.
func buttonMessage(event Event) (outMsg, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return outMsg{}, fmt.Errorf("format payload: %w", err)
	}
	return outMsg{topic: Topic, payload: payload}, nil
}

// systemMessage addresses a lifecycle event: QoS 1, retained on request.
func systemMessage(event SystemEvent) (outMsg, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return outMsg{}, fmt.Errorf("format system payload: %w", err)
	}
	return outMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}, nil
}

func (p *RealPublisher) send(msg outMsg) error {
	p.mu.Lock()
	if replaying := p.replaying; replaying || !p.client.IsConnectionOpen() {
		p.outbox.add(msg)
		p.mu.Unlock()
		p.logger.Debug("mqtt: message queued", "topic", msg.topic, "replaying", replaying)
		return nil
	}
	p.mu.Unlock()
	return p.publish(msg)
}

func (p *RealPublisher) publish(msg outMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.publishTimeout) {
		return errors.New("timeout")
	}
	return token.Error()
}

// onConnect runs after every successful (re)connection and replays whatever
// was buffered while offline, oldest first. Messages sent during the replay
// are queued and flushed in the same pass.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	p.connects++
	reconnected := p.connects > 1
	p.replaying = true
	backlog := p.outbox.size()
	p.mu.Unlock()

	p.logger.Info("mqtt: connected", "reconnect", reconnected, "replaying", backlog)

	if reconnected {
		msg, err := systemMessage(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err != nil {
			p.logger.Warn("mqtt: skipping reconnect event", "error", err)
		} else if err := p.publish(msg); err != nil {
			p.logger.Warn("mqtt: failed to publish reconnect event", "error", err)
		}
	}

	for {
		p.mu.Lock()
		pending := p.outbox.takeAll()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for _, msg := range pending {
			if err := p.publish(msg); err != nil {
				p.logger.Warn("mqtt: replay failed", "topic", msg.topic, "error", err)
			}
		}
	}
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.size()
}

// Close disconnects from the broker. Messages still buffered are dropped.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		p.logger.Warn("mqtt: discarding buffered messages on close", "count", n)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
