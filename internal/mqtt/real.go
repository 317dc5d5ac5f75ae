package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/deskcycle-kb/internal/logic"
)

// ClientID identifies this process to the broker.
const ClientID = "deskcycle-kb"

var errPublishTimeout = errors.New("publish timeout")

// RealPublisher publishes to an actual MQTT broker.
// While the connection is down messages are held in a ring buffer and
// replayed in order once paho reconnects.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	connected bool
	everUp    bool
	pending   *ringBuffer
}

// NewRealPublisher connects to broker. The connection is retried in the
// background, so a broker that is down at startup is not an error.
func NewRealPublisher(broker string, bufferSize int) (*RealPublisher, error) {
	p := &RealPublisher{pending: newRingBuffer(bufferSize)}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "connection lost",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker: %w", token.Error())
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.connected = true
	reconnect := p.everUp
	p.everUp = true
	backlog := p.pending.drainAll()
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected")
		if payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err == nil {
			c.Publish(TopicSystem, 1, false, payload)
		}
	} else {
		log.Printf("mqtt: connected")
	}

	if len(backlog) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(backlog))
	}
	for _, m := range backlog {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Publish sends a key event. QoS 0, not retained.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a lifecycle event. QoS 1 so shutdown is delivered.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(m bufferedMsg) error {
	p.mu.Lock()
	if !p.connected {
		p.pending.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("%s: %w", m.topic, errPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker. Anything still buffered is lost.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	if n := p.pending.len(); n > 0 {
		log.Printf("mqtt: discarding %d unsent messages", n)
	}
	p.mu.Unlock()

	p.client.Disconnect(1000)
	return nil
}
