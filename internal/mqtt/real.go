package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/fridge-thermostat/internal/logger"
	"github.com/sweeney/fridge-thermostat/internal/logic"
)

// BacklogSize is the number of messages kept while the broker is unreachable.
const BacklogSize = 256

const (
	connectWait = 10 * time.Second
	publishWait = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are queued and replayed, oldest first, once the client
// reconnects.
type RealPublisher struct {
	client paho.Client
	log    *logger.Logger

	mu      sync.Mutex
	pending *backlog
}

// NewRealPublisher creates a publisher for the given broker. A broker that is
// unreachable at startup is not an error: the client keeps retrying in the
// background and messages are queued meanwhile.
func NewRealPublisher(broker, clientID string, l *logger.Logger) (*RealPublisher, error) {
	if l == nil {
		l = logger.Discard()
	}
	p := &RealPublisher{
		log:     l,
		pending: newBacklog(BacklogSize),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: SystemLost})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			l.Warnf("connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectWait) {
		l.Warnf("broker %s not reachable yet, queueing messages", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.pending.drain()
	p.mu.Unlock()

	p.log.Infof("connected, replaying %d queued messages", len(msgs))
	if dropped > 0 {
		p.log.Warnf("%d messages dropped while disconnected", dropped)
	}
	for _, m := range msgs {
		if err := p.send(m); err != nil {
			p.log.Warnf("replay to %s failed: %v", m.topic, err)
		}
	}

	reconnected, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: SystemReconnected})
	if err == nil {
		c.Publish(TopicSystem, 1, false, reconnected)
	}
}

// Publish sends a compressor event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: transitions are rare and must not be lost
	return p.publish(message{topic: Topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(message{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m message) error {
	if !p.client.IsConnectionOpen() {
		p.enqueue(m)
		return nil
	}
	if err := p.send(m); err != nil {
		p.enqueue(m)
		return err
	}
	return nil
}

func (p *RealPublisher) send(m message) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishWait) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

func (p *RealPublisher) enqueue(m message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending.add(m) && p.pending.dropped == 1 {
		p.log.Warnf("backlog full (%d messages), dropping oldest", BacklogSize)
	}
}

// Pending returns the number of queued messages.
func (p *RealPublisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
