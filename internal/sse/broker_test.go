package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/avatars/internal/models"
)

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishRebuild(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	c := &models.Catalog{Personas: []models.CatalogEntry{
		{PersonaMeta: models.PersonaMeta{ID: "one"}},
		{PersonaMeta: models.PersonaMeta{ID: "two"}},
	}}
	b.PublishRebuild(c, nil)

	s := receive(t, ch)
	if !strings.HasPrefix(s, "event: catalog.rebuilt\n") {
		t.Errorf("missing event type in %q", s)
	}
	if !strings.Contains(s, `data: {"personas":["one","two"]}`) {
		t.Errorf("missing data in %q", s)
	}
	if !strings.HasSuffix(s, "\n\n") {
		t.Errorf("event not terminated: %q", s)
	}

	b.PublishRebuild(nil, errors.New("duplicate persona id"))
	s = receive(t, ch)
	if !strings.Contains(s, "event: catalog.failed") || !strings.Contains(s, `"error":"duplicate persona id"`) {
		t.Errorf("unexpected failure event %q", s)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: EventCatalogRebuilt, Data: rebuiltData{Personas: []string{"x"}}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if body := w.Body.String(); !strings.Contains(body, "event: catalog.rebuilt") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Client buffer holds 16; the rest must be dropped without blocking.
	for i := 0; i < 100; i++ {
		b.Publish(Event{Type: "test", Data: i})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Safe no-ops after close.
	b.Publish(Event{Type: EventCatalogRebuilt})
	b.PublishRebuild(&models.Catalog{}, nil)
}
