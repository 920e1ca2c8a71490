package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/dashclock/internal/logic"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type sent struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	open         bool
	sent         []sent
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sent{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *fakeClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *fakeClient) messages() []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sent(nil), c.sent...)
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, 8)

	if err := p.Publish(logic.Event{Type: logic.EventParkingOn}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := c.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].topic != Topic || msgs[0].qos != 0 || msgs[0].retained {
		t.Errorf("unexpected event message: %+v", msgs[0])
	}
	if msgs[1].topic != TopicSystem || msgs[1].qos != 1 || !msgs[1].retained {
		t.Errorf("unexpected system message: %+v", msgs[1])
	}
	if p.Buffered() != 0 {
		t.Errorf("expected nothing buffered, got %d", p.Buffered())
	}
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, 8)

	p.Publish(logic.Event{Type: logic.EventParkingOn})
	p.Publish(logic.Event{Type: logic.EventParkingOff})

	if len(c.messages()) != 0 {
		t.Fatal("expected nothing sent while disconnected")
	}
	if p.Buffered() != 2 {
		t.Fatalf("expected 2 buffered, got %d", p.Buffered())
	}

	c.setOpen(true)
	p.drain()

	msgs := c.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 replayed, got %d", len(msgs))
	}
	for i, want := range []string{"PARKING_ON", "PARKING_OFF"} {
		var got Payload
		if err := json.Unmarshal(msgs[i].payload, &got); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if got.Dashboard.Event != want {
			t.Errorf("message %d: expected %s, got %s", i, want, got.Dashboard.Event)
		}
	}
	if p.Buffered() != 0 {
		t.Errorf("expected empty buffer after drain, got %d", p.Buffered())
	}
}

func TestRealPublisherBufferBounded(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, 3)

	for i := 0; i < 10; i++ {
		p.Publish(logic.Event{Type: logic.EventTimeSet, UptimeMs: uint64(i)})
	}
	if p.Buffered() != 3 {
		t.Errorf("expected buffer capped at 3, got %d", p.Buffered())
	}
}

func TestRealPublisherClose(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, 1)

	if !p.IsConnected() {
		t.Error("expected connected")
	}
	p.Close()
	if !c.disconnected {
		t.Error("expected Disconnect to be called")
	}
}
