package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketkart/pocketbot/internal/core"
)

// addTestClient registers a client without a real socket; deliver only ever
// touches the send channel.
func addTestClient(h *Hub, id string) chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.clients[id] = &client{send: ch}
	h.mu.Unlock()
	return ch
}

func TestOpenStreamUnknownClient(t *testing.T) {
	h := NewHub()
	_, err := h.OpenStream("nobody")
	assert.ErrorIs(t, err, core.ErrClientNotRegistered)
}

func TestStreamDeliveryAndRetirement(t *testing.T) {
	h := NewHub()
	ch := addTestClient(h, "c1")

	streamID, err := h.OpenStream("c1")
	require.NoError(t, err)

	h.SendChunk(streamID, "Hel")
	h.SendChunk(streamID, "lo")
	h.SendCompletion(streamID, core.Message{Sender: core.SenderBot, Text: "Hello"})

	require.Len(t, ch, 3)
	ev := <-ch
	assert.Equal(t, "chunk", ev.Type)
	assert.Equal(t, "Hel", ev.Delta)
	<-ch
	ev = <-ch
	assert.Equal(t, "completed", ev.Type)
	require.NotNil(t, ev.Payload)
	assert.Equal(t, "Hello", ev.Payload.Message.Text)

	// The stream id is single-use: nothing more arrives on it.
	h.SendChunk(streamID, "late")
	assert.Empty(t, ch)
}

func TestSendErrorRetiresStream(t *testing.T) {
	h := NewHub()
	ch := addTestClient(h, "c1")

	streamID, err := h.OpenStream("c1")
	require.NoError(t, err)

	h.SendError(streamID, "boom")
	ev := <-ch
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "boom", ev.Error)

	h.SendError(streamID, "boom again")
	assert.Empty(t, ch)
}

func TestDeliveryToGoneClientIsNoop(t *testing.T) {
	h := NewHub()
	addTestClient(h, "c1")

	streamID, err := h.OpenStream("c1")
	require.NoError(t, err)

	h.dropClient("c1")

	// Must not panic or block.
	h.SendChunk(streamID, "into the void")
	h.SendCompletion(streamID, core.Message{Text: "gone"})
}

func TestDropClientReapsItsStreams(t *testing.T) {
	h := NewHub()
	addTestClient(h, "c1")
	ch2 := addTestClient(h, "c2")

	s1, err := h.OpenStream("c1")
	require.NoError(t, err)
	s2, err := h.OpenStream("c2")
	require.NoError(t, err)

	h.dropClient("c1")

	h.mu.RLock()
	_, s1alive := h.streams[s1]
	_, s2alive := h.streams[s2]
	h.mu.RUnlock()
	assert.False(t, s1alive)
	assert.True(t, s2alive)

	h.SendChunk(s2, "still works")
	require.Len(t, ch2, 1)
}

// The widget parses frames by field name, so the wire shape is load-bearing:
// deltas live under "chunk" and a completed stream wraps its message in
// "payload".
func TestEventWireShape(t *testing.T) {
	raw, err := json.Marshal(Event{Type: "chunk", StreamID: "s1", Delta: "hel"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chunk","streamId":"s1","chunk":"hel"}`, string(raw))

	raw, err = json.Marshal(Event{
		Type:     "completed",
		StreamID: "s1",
		Payload:  &Payload{Message: core.Message{Sender: core.SenderBot, Text: "hello"}},
	})
	require.NoError(t, err)

	var frame map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.JSONEq(t, `"completed"`, string(frame["type"]))
	require.Contains(t, frame, "payload")

	var payload struct {
		Message core.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(frame["payload"], &payload))
	assert.Equal(t, "hello", payload.Message.Text)

	raw, err = json.Marshal(Event{Type: "error", StreamID: "s1", Error: "boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","streamId":"s1","error":"boom"}`, string(raw))
}

func TestSlowConsumerDropsFrames(t *testing.T) {
	h := NewHub()
	ch := make(chan Event, 1)
	h.mu.Lock()
	h.clients["c1"] = &client{send: ch}
	h.mu.Unlock()

	streamID, err := h.OpenStream("c1")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		h.SendChunk(streamID, "one")
		h.SendChunk(streamID, "two")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delivery blocked on a full channel")
	}
	assert.Len(t, ch, 1)
}
