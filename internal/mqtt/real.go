package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/habit-tracker/internal/logger"
	"github.com/sweeney/habit-tracker/internal/stats"
)

// bufferCapacity bounds how many messages are held while the broker is unreachable.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker. While disconnected,
// messages are buffered and replayed in order on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    *logger.Logger
	sendFn func(topic string, qos byte, retained bool, payload []byte) error

	mu            sync.Mutex
	buffer        *ringBuffer
	connected     bool // set once the buffer is replayed after a connect
	everConnected bool
}

// NewRealPublisher creates a publisher for the given broker. An unreachable
// broker is not an error: the client keeps retrying in the background.
func NewRealPublisher(broker string, topics Topics, log *logger.Logger) (*RealPublisher, error) {
	p := &RealPublisher{
		topics: topics,
		log:    log.With("component", "mqtt"),
		buffer: newRingBuffer(bufferCapacity),
	}
	p.sendFn = p.send

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("habitd-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(topics.System, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.log.Warn("broker not reachable yet, buffering", "broker", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// IsConnected reports whether the broker connection is up and messages
// go straight out.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// PublishEvent sends a notification (QoS 1, not retained).
func (p *RealPublisher) PublishEvent(ev stats.Event) error {
	payload, err := FormatEventPayload(ev)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}
	return p.publish(p.topics.Events, 1, false, payload)
}

// PublishSnapshot sends the user's state (QoS 1, retained).
func (p *RealPublisher) PublishSnapshot(userID string, s stats.State, at time.Time) error {
	payload, err := FormatSnapshotPayload(userID, s, at)
	if err != nil {
		return fmt.Errorf("format snapshot payload: %w", err)
	}
	return p.publish(p.topics.Snapshot, 1, true, payload)
}

// PublishSystem sends a daemon lifecycle event.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(p.topics.System, 1, event.Retained, payload)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if !p.connected {
		if p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained}) {
			p.log.Debug("buffer full, dropped oldest message", "capacity", bufferCapacity)
		}
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.sendFn(topic, qos, retained, payload)
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// onConnect runs on paho's goroutine after every (re)connect. Messages
// published during the replay are buffered too and picked up by the next
// pass; the publisher only goes direct once the buffer is empty.
func (p *RealPublisher) onConnect(_ paho.Client) {
	replayed := 0
	for {
		p.mu.Lock()
		msgs, dropped := p.buffer.drainAll()
		if len(msgs) == 0 {
			p.connected = true
			reconnect := p.everConnected
			p.everConnected = true
			p.mu.Unlock()

			if replayed > 0 {
				p.log.Info("replayed buffered messages", "count", replayed)
			}
			if reconnect {
				if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err != nil {
					p.log.Warn("failed to publish reconnect event", "error", err)
				}
			}
			return
		}
		p.mu.Unlock()

		if dropped > 0 {
			p.log.Warn("messages dropped while disconnected", "dropped", dropped)
		}
		for _, m := range msgs {
			if err := p.sendFn(m.topic, m.qos, m.retained, m.payload); err != nil {
				p.log.Warn("replay failed", "topic", m.topic, "error", err)
			}
		}
		replayed += len(msgs)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.log.Warn("connection lost", "error", err)
}
