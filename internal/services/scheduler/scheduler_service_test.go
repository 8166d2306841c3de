package scheduler

import (
	"errors"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(arbor.NewLogger()).(*Service)
}

func TestRegisterTaskValidatesSchedule(t *testing.T) {
	svc := newTestService(t)

	if err := svc.RegisterTask("sweep", "not a cron", func() error { return nil }); err == nil {
		t.Error("Expected error for invalid cron expression")
	}

	if err := svc.RegisterTask("sweep", "*/5 * * * *", nil); err == nil {
		t.Error("Expected error for nil handler")
	}

	if err := svc.RegisterTask("sweep", "*/5 * * * *", func() error { return nil }); err != nil {
		t.Fatalf("Failed to register task: %v", err)
	}

	if err := svc.RegisterTask("sweep", "0 * * * *", func() error { return nil }); err == nil {
		t.Error("Expected error for duplicate task name")
	}
}

func TestStartStop(t *testing.T) {
	svc := newTestService(t)

	if svc.IsRunning() {
		t.Error("Expected scheduler to start stopped")
	}

	if err := svc.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	if !svc.IsRunning() {
		t.Error("Expected scheduler to be running after Start")
	}

	if err := svc.Start(); err == nil {
		t.Error("Expected error on second Start")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Failed to stop scheduler: %v", err)
	}
	if svc.IsRunning() {
		t.Error("Expected scheduler to be stopped after Stop")
	}

	// Stop is idempotent
	if err := svc.Stop(); err != nil {
		t.Errorf("Expected nil on second Stop, got %v", err)
	}
}

func TestTaskStatusTracksRuns(t *testing.T) {
	svc := newTestService(t)

	attempts := 0
	err := svc.RegisterTask("sweep", "*/5 * * * *", func() error {
		attempts++
		if attempts == 1 {
			return errors.New("storage unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to register task: %v", err)
	}

	status, ok := svc.TaskStatus("sweep")
	if !ok {
		t.Fatal("Expected task status for registered task")
	}
	if status.LastRun != nil {
		t.Error("Expected no last run before first execution")
	}

	svc.executeTask("sweep")

	status, _ = svc.TaskStatus("sweep")
	if status.LastRun == nil {
		t.Error("Expected last run to be recorded")
	}
	if status.LastErr != "storage unavailable" {
		t.Errorf("Expected handler error to be recorded, got %q", status.LastErr)
	}

	// A successful run clears the previous error
	svc.executeTask("sweep")
	status, _ = svc.TaskStatus("sweep")
	if status.LastErr != "" {
		t.Errorf("Expected error to clear after successful run, got %q", status.LastErr)
	}
}

func TestTaskStatusUnknownTask(t *testing.T) {
	svc := newTestService(t)

	if _, ok := svc.TaskStatus("missing"); ok {
		t.Error("Expected no status for unregistered task")
	}
}

func TestExecuteTaskRecoversPanic(t *testing.T) {
	svc := newTestService(t)

	err := svc.RegisterTask("sweep", "*/5 * * * *", func() error {
		panic("bad sweep")
	})
	if err != nil {
		t.Fatalf("Failed to register task: %v", err)
	}

	// Must not propagate the panic
	svc.executeTask("sweep")

	status, _ := svc.TaskStatus("sweep")
	if !strings.Contains(status.LastErr, "panic") {
		t.Errorf("Expected panic to be recorded as last error, got %q", status.LastErr)
	}
}
