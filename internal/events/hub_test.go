package events

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mcoot/quill/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "signed_out",
			data:      `{"type":"signed_out"}`,
			expected:  "event: signed_out\ndata: {\"type\":\"signed_out\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "identity_updated",
			data:      "{\n  \"a\": 1\n}",
			expected:  "event: identity_updated\ndata: {\ndata:   \"a\": 1\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatSSEMessage(tt.eventName, tt.data)
			if string(result) != tt.expected {
				t.Errorf("formatSSEMessage(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "single line", input: "hello", expected: []string{"hello"}},
		{name: "two lines", input: "line1\nline2", expected: []string{"line1", "line2"}},
		{name: "trailing newline", input: "line1\n", expected: []string{"line1"}},
		{name: "empty string", input: "", expected: []string{""}},
		{name: "crlf line endings", input: "line1\r\nline2\r\n", expected: []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitLines(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("splitLines(%q) returned %d lines, want %d",
					tt.input, len(result), len(tt.expected))
				return
			}
			for i, line := range result {
				if line != tt.expected[i] {
					t.Errorf("splitLines(%q)[%d] = %q, want %q",
						tt.input, i, line, tt.expected[i])
				}
			}
		})
	}
}

func receive(t *testing.T, client *Client) Frame {
	t.Helper()
	select {
	case msg := <-client.send:
		frame, err := NewReader(strings.NewReader(string(msg))).Next()
		if err != nil {
			t.Fatalf("failed to parse message %q: %v", string(msg), err)
		}
		return frame
	case <-time.After(200 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
	return Frame{}
}

func expectNothing(t *testing.T, client *Client) {
	t.Helper()
	select {
	case msg := <-client.send:
		t.Errorf("client unexpectedly received %q", string(msg))
	case <-time.After(30 * time.Millisecond):
	}
}

func TestHub_RegisterAndPublish(t *testing.T) {
	hub := NewHub("identity-1", discardLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "session-1")
	hub.Register(client)

	// Give the hub time to process registration
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Publish(model.SessionEvent{
		Type:       model.EventSignedIn,
		IdentityID: "identity-1",
		SessionID:  "session-1",
	})

	frame := receive(t, client)
	if frame.Event != "signed_in" {
		t.Errorf("event = %q, want signed_in", frame.Event)
	}
	event, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if event.SessionID != "session-1" {
		t.Errorf("session_id = %q, want session-1", event.SessionID)
	}
}

func TestHub_SessionScopedEventsOnlyReachTheirSession(t *testing.T) {
	hub := NewHub("identity-1", discardLogger())
	go hub.Run()
	defer hub.Close()

	laptop := NewClient(hub, "session-laptop")
	phone := NewClient(hub, "session-phone")
	hub.Register(laptop)
	hub.Register(phone)

	hub.Publish(model.SessionEvent{
		Type:       model.EventSignedOut,
		IdentityID: "identity-1",
		SessionID:  "session-phone",
	})

	if frame := receive(t, phone); frame.Event != "signed_out" {
		t.Errorf("phone event = %q, want signed_out", frame.Event)
	}
	expectNothing(t, laptop)
}

func TestHub_IdentityWideEventsReachEverySession(t *testing.T) {
	hub := NewHub("identity-1", discardLogger())
	go hub.Run()
	defer hub.Close()

	clients := []*Client{
		NewClient(hub, "s1"),
		NewClient(hub, "s2"),
		NewClient(hub, "s3"),
	}
	for _, c := range clients {
		hub.Register(c)
	}
	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 3 {
		t.Errorf("ClientCount() = %d, want 3", hub.ClientCount())
	}

	hub.Publish(model.SessionEvent{
		Type:       model.EventIdentityUpdated,
		IdentityID: "identity-1",
		Identity:   &model.Identity{ID: "identity-1", DisplayName: "Renamed", Email: "a@example.com"},
	})

	for i, c := range clients {
		frame := receive(t, c)
		event, err := Decode(frame)
		if err != nil {
			t.Fatalf("client %d: Decode() error = %v", i+1, err)
		}
		if event.Identity == nil || event.Identity.DisplayName != "Renamed" {
			t.Errorf("client %d: identity = %+v, want Renamed", i+1, event.Identity)
		}
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub("identity-1", discardLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "session-1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after unregister, want 0", hub.ClientCount())
	}

	// Unregister closes the send channel
	if _, ok := <-client.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub("identity-1", discardLogger())
	go hub.Run()

	client := NewClient(hub, "session-1")
	hub.Register(client)
	hub.Close()
	hub.Close() // idempotent

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel to be closed")
		}
	case <-time.After(200 * time.Millisecond):
		t.Error("send channel not closed after hub close")
	}
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(discardLogger())
	defer manager.Close()

	hub1 := manager.GetOrCreateHub("identity-a")
	if hub1 == nil {
		t.Fatal("GetOrCreateHub returned nil")
	}

	hub2 := manager.GetOrCreateHub("identity-a")
	if hub1 != hub2 {
		t.Error("GetOrCreateHub returned different hub for same identity")
	}

	hub3 := manager.GetOrCreateHub("identity-b")
	if hub3 == hub1 {
		t.Error("GetOrCreateHub returned same hub for different identity")
	}
}

func TestHubManager_GetHub(t *testing.T) {
	manager := NewHubManager(discardLogger())
	defer manager.Close()

	if hub := manager.GetHub("missing"); hub != nil {
		t.Error("GetHub returned non-nil for non-existent hub")
	}

	created := manager.GetOrCreateHub("identity-a")
	if got := manager.GetHub("identity-a"); got != created {
		t.Error("GetHub returned different hub than GetOrCreateHub")
	}
}

func TestHubManager_RemoveHub(t *testing.T) {
	manager := NewHubManager(discardLogger())

	manager.GetOrCreateHub("identity-a")
	manager.RemoveHub("identity-a")

	if manager.GetHub("identity-a") != nil {
		t.Error("Hub still exists after RemoveHub")
	}

	// Removing non-existent hub should not panic
	manager.RemoveHub("missing")
}

func TestHubManager_PublishWithoutHubIsNoop(t *testing.T) {
	manager := NewHubManager(discardLogger())
	manager.Publish("nobody", model.SessionEvent{Type: model.EventSignedOut})
	if manager.GetHub("nobody") != nil {
		t.Error("Publish should not create a hub")
	}
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(discardLogger())
	defer manager.Close()

	manager.GetOrCreateHub("empty")

	active := manager.GetOrCreateHub("active")
	client := NewClient(active, "session-1")
	active.Register(client)
	time.Sleep(10 * time.Millisecond)

	manager.CleanupEmptyHubs()

	if manager.GetHub("empty") != nil {
		t.Error("Empty hub still exists after cleanup")
	}
	if manager.GetHub("active") == nil {
		t.Error("Active hub was removed during cleanup")
	}
}

func TestServeSSE_StreamsEventsUntilDisconnect(t *testing.T) {
	manager := NewHubManager(discardLogger())
	defer manager.Close()
	hub := manager.GetOrCreateHub("identity-1")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, hub, "session-1")
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	reader := NewReader(resp.Body)
	frame, err := reader.Next()
	if err != nil {
		t.Fatalf("reading connected frame: %v", err)
	}
	if frame.Event != EventConnected {
		t.Errorf("first event = %q, want %q", frame.Event, EventConnected)
	}

	// The client is registered before the connected frame is written
	manager.Publish("identity-1", model.SessionEvent{
		Type:       model.EventSessionExpired,
		IdentityID: "identity-1",
		SessionID:  "session-1",
	})

	frame, err = reader.Next()
	if err != nil {
		t.Fatalf("reading event frame: %v", err)
	}
	if frame.Event != "session_expired" {
		t.Errorf("event = %q, want session_expired", frame.Event)
	}
}
