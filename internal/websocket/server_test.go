package websocket

import (
	"testing"

	"github.com/voxtype/voxtype/pkg/logger"
)

func newTestClient(s *Server) *Client {
	return &Client{
		send:      make(chan *Message, 4),
		server:    s,
		closeChan: make(chan struct{}),
	}
}

func TestWantsPartialsDefaultsToTrue(t *testing.T) {
	c := newTestClient(NewServer(logger.NewNop()))

	if !c.WantsPartials() {
		t.Fatal("client without options should receive partials")
	}

	c.UpdateOptions(&ClientOptions{SendPartials: false})
	if c.WantsPartials() {
		t.Fatal("client opted out of partials but WantsPartials is true")
	}

	c.UpdateOptions(&ClientOptions{SendPartials: true})
	if !c.WantsPartials() {
		t.Fatal("client opted back into partials but WantsPartials is false")
	}
}

func TestShouldSendToClientFiltersPartials(t *testing.T) {
	s := NewServer(logger.NewNop())
	c := newTestClient(s)
	c.UpdateOptions(&ClientOptions{SendPartials: false})

	partial := &Message{Type: MessageTypeTranscriptPartial}
	if s.shouldSendToClient(c, partial) {
		t.Error("partial delivered to client that opted out")
	}

	for _, msgType := range []string{MessageTypeUtteranceFinal, MessageTypeUtteranceCleaned, MessageTypeRecordingState} {
		if !s.shouldSendToClient(c, &Message{Type: msgType}) {
			t.Errorf("message type %q should not be filtered", msgType)
		}
	}
}

func TestSendMessageDropsWhenQueueFull(t *testing.T) {
	c := newTestClient(NewServer(logger.NewNop()))

	for i := 0; i < cap(c.send); i++ {
		if !c.SendMessage(&Message{Type: MessageTypeUtteranceFinal}) {
			t.Fatalf("send %d rejected with queue space remaining", i)
		}
	}
	if c.SendMessage(&Message{Type: MessageTypeUtteranceFinal}) {
		t.Error("send accepted with full queue")
	}
}

func TestSendMessageAfterClose(t *testing.T) {
	c := newTestClient(NewServer(logger.NewNop()))
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if c.SendMessage(&Message{Type: MessageTypeUtteranceFinal}) {
		t.Error("send accepted on closed client")
	}
}
