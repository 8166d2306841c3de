package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/ternarybob/arbor"
)

func TestSubscribeRejectsNilHandler(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	if err := svc.Subscribe(interfaces.EventJobProgress, nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestPublishSyncDeliversPayload(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var mu sync.Mutex
	var received []interfaces.JobProgressEvent

	handler := func(ctx context.Context, event interfaces.Event) error {
		payload, ok := event.Payload.(interfaces.JobProgressEvent)
		if !ok {
			t.Errorf("unexpected payload type %T", event.Payload)
			return nil
		}
		mu.Lock()
		received = append(received, payload)
		mu.Unlock()
		return nil
	}

	if err := svc.Subscribe(interfaces.EventJobProgress, handler); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	ctx := context.Background()
	stages := []interfaces.JobProgressEvent{
		{JobID: "job_1", Stage: "parsing_model", Progress: 5},
		{JobID: "job_1", Stage: "loading_template", Progress: 15},
		{JobID: "job_1", Stage: "complete", Progress: 100},
	}

	for _, ev := range stages {
		if err := svc.PublishSync(ctx, interfaces.Event{Type: interfaces.EventJobProgress, Payload: ev}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != len(stages) {
		t.Fatalf("expected %d events, got %d", len(stages), len(received))
	}
	// PublishSync waits for handlers, so delivery order matches publish order.
	for i, ev := range stages {
		if received[i] != ev {
			t.Errorf("event %d: expected %+v, got %+v", i, ev, received[i])
		}
	}
}

func TestPublishSyncReturnsHandlerErrors(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	failing := func(ctx context.Context, event interfaces.Event) error {
		return errors.New("handler boom")
	}

	if err := svc.Subscribe(interfaces.EventJobWarning, failing); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	err := svc.PublishSync(context.Background(), interfaces.Event{
		Type:    interfaces.EventJobWarning,
		Payload: interfaces.JobWarningEvent{JobID: "job_1", Warning: "missing field"},
	})
	if err == nil {
		t.Fatal("expected error from failing handler")
	}
}

func TestPublishNoSubscribersIsNoop(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	if err := svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventReportSaved, Payload: "rpt_123"}); err != nil {
		t.Fatalf("publish with no subscribers should not error: %v", err)
	}
	if err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventReportSaved, Payload: "rpt_123"}); err != nil {
		t.Fatalf("publish sync with no subscribers should not error: %v", err)
	}
}

func TestSubscribeLoggerToAllEvents(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	if err := SubscribeLoggerToAllEvents(svc, arbor.NewLogger()); err != nil {
		t.Fatalf("subscribe logger failed: %v", err)
	}

	// Logger handler never fails, so a sync publish across every type succeeds.
	ctx := context.Background()
	events := []interfaces.Event{
		{Type: interfaces.EventJobProgress, Payload: interfaces.JobProgressEvent{JobID: "job_1", Stage: "parsing_model", Progress: 5}},
		{Type: interfaces.EventJobWarning, Payload: interfaces.JobWarningEvent{JobID: "job_1", Warning: "valuation mismatch"}},
		{Type: interfaces.EventReportSaved, Payload: "rpt_456"},
	}
	for _, ev := range events {
		if err := svc.PublishSync(ctx, ev); err != nil {
			t.Fatalf("publish %s failed: %v", ev.Type, err)
		}
	}
}
