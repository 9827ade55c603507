package mqtt

import (
	"strings"
	"testing"

	"github.com/sweeney/habit-tracker/internal/logger"
)

// newTestRealPublisher returns a publisher with no broker client whose sends
// are recorded as payload strings.
func newTestRealPublisher(sent *[]string) *RealPublisher {
	p := &RealPublisher{
		topics: NewTopics("habits", "u1"),
		log:    logger.NewNop(),
		buffer: newRingBuffer(8),
	}
	p.sendFn = func(_ string, _ byte, _ bool, payload []byte) error {
		*sent = append(*sent, string(payload))
		return nil
	}
	return p
}

func TestRealPublisherBuffersUntilConnected(t *testing.T) {
	var sent []string
	p := newTestRealPublisher(&sent)

	if err := p.publish("t", 1, false, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if len(sent) != 0 || p.buffer.len() != 1 {
		t.Fatalf("sent=%v buffered=%d, want message held", sent, p.buffer.len())
	}

	p.onConnect(nil)
	if !p.IsConnected() {
		t.Error("expected connected after replay")
	}
	if err := p.publish("t", 1, false, []byte("b")); err != nil {
		t.Fatal(err)
	}
	if len(sent) != 2 || sent[0] != "a" || sent[1] != "b" {
		t.Errorf("sent = %v, want [a b]", sent)
	}

	p.onConnectionLost(nil, nil)
	if p.IsConnected() {
		t.Error("expected disconnected")
	}
	_ = p.publish("t", 1, false, []byte("c"))
	if p.buffer.len() != 1 {
		t.Errorf("buffered = %d after connection loss", p.buffer.len())
	}
}

func TestRealPublisherPublishDuringReplay(t *testing.T) {
	var sent []string
	p := newTestRealPublisher(&sent)
	_ = p.publish("t", 1, false, []byte("a"))

	// A message published while the buffer is being replayed must not be
	// left behind in it.
	published := false
	p.sendFn = func(_ string, _ byte, _ bool, payload []byte) error {
		sent = append(sent, string(payload))
		if !published {
			published = true
			if err := p.publish("t", 1, false, []byte("b")); err != nil {
				t.Error(err)
			}
		}
		return nil
	}

	p.onConnect(nil)
	if p.buffer.len() != 0 {
		t.Fatalf("%d message(s) stranded in the buffer", p.buffer.len())
	}
	if len(sent) != 2 || sent[0] != "a" || sent[1] != "b" {
		t.Errorf("sent = %v, want [a b]", sent)
	}
}

func TestRealPublisherReconnectEvent(t *testing.T) {
	var sent []string
	p := newTestRealPublisher(&sent)

	p.onConnect(nil)
	if len(sent) != 0 {
		t.Errorf("first connect sent %v", sent)
	}
	p.onConnectionLost(nil, nil)
	p.onConnect(nil)
	if len(sent) != 1 {
		t.Fatalf("sent = %v, want one RECONNECTED event", sent)
	}
	if want := `"event":"RECONNECTED"`; !strings.Contains(sent[0], want) {
		t.Errorf("payload = %s", sent[0])
	}
}
