package badger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/ternarybob/arbor"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	config := &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "data", "meld.db"),
	}

	manager, err := NewManager(arbor.NewLogger(), config)
	if err != nil {
		t.Fatalf("Failed to create storage manager: %v", err)
	}
	t.Cleanup(func() {
		if err := manager.Close(); err != nil {
			t.Errorf("Failed to close storage manager: %v", err)
		}
	})

	return manager
}

func TestEngagementRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	engagement := models.NewEngagement("eng_1", "Meridian Fabrication LLC")
	engagement.Industry = "Metal Fabrication"
	if err := manager.Engagements().Store(ctx, engagement); err != nil {
		t.Fatalf("Failed to store engagement: %v", err)
	}

	got, err := manager.Engagements().Get(ctx, "eng_1")
	if err != nil {
		t.Fatalf("Failed to get engagement: %v", err)
	}
	if got.CompanyName != "Meridian Fabrication LLC" {
		t.Errorf("Expected company name to round-trip, got %q", got.CompanyName)
	}
	if got.Status != models.EngagementStatusDraft {
		t.Errorf("Expected draft status, got %s", got.Status)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set on store")
	}

	count, err := manager.Engagements().Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count engagements: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 engagement, got %d", count)
	}

	if err := manager.Engagements().Delete(ctx, "eng_1"); err != nil {
		t.Fatalf("Failed to delete engagement: %v", err)
	}

	_, err = manager.Engagements().Get(ctx, "eng_1")
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestEngagementListOrdersByUpdatedAt(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	first := models.NewEngagement("eng_1", "First Co")
	if err := manager.Engagements().Store(ctx, first); err != nil {
		t.Fatalf("Failed to store first engagement: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second := models.NewEngagement("eng_2", "Second Co")
	if err := manager.Engagements().Store(ctx, second); err != nil {
		t.Fatalf("Failed to store second engagement: %v", err)
	}

	list, err := manager.Engagements().List(ctx)
	if err != nil {
		t.Fatalf("Failed to list engagements: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 engagements, got %d", len(list))
	}
	if list[0].ID != "eng_2" {
		t.Errorf("Expected most recently updated engagement first, got %s", list[0].ID)
	}
}

func TestReportStorageByEngagement(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	older := &models.GeneratedReport{
		ID:           "rpt_1",
		EngagementID: "eng_1",
		JobID:        "job_1",
		ArtifactPath: "/reports/rpt_1.pdf",
		Format:       "pdf",
		CreatedAt:    time.Now().Add(-time.Hour),
	}
	newer := &models.GeneratedReport{
		ID:           "rpt_2",
		EngagementID: "eng_1",
		JobID:        "job_2",
		ArtifactPath: "/reports/rpt_2.pdf",
		Format:       "pdf",
		Warnings:     []string{"section \"Industry Outlook\" missing generated content"},
		CreatedAt:    time.Now(),
	}
	other := &models.GeneratedReport{
		ID:           "rpt_3",
		EngagementID: "eng_2",
		JobID:        "job_3",
		ArtifactPath: "/reports/rpt_3.pdf",
		Format:       "pdf",
	}

	for _, report := range []*models.GeneratedReport{older, newer, other} {
		if err := manager.Reports().Store(ctx, report); err != nil {
			t.Fatalf("Failed to store report %s: %v", report.ID, err)
		}
	}

	reports, err := manager.Reports().GetByEngagement(ctx, "eng_1")
	if err != nil {
		t.Fatalf("Failed to get reports by engagement: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports for eng_1, got %d", len(reports))
	}
	if reports[0].ID != "rpt_2" {
		t.Errorf("Expected newest report first, got %s", reports[0].ID)
	}
	if len(reports[0].Warnings) != 1 {
		t.Errorf("Expected warnings to round-trip, got %v", reports[0].Warnings)
	}

	latest, err := manager.Reports().GetLatestByEngagement(ctx, "eng_1")
	if err != nil {
		t.Fatalf("Failed to get latest report: %v", err)
	}
	if latest.ID != "rpt_2" {
		t.Errorf("Expected rpt_2 as latest, got %s", latest.ID)
	}

	_, err = manager.Reports().GetLatestByEngagement(ctx, "eng_missing")
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown engagement, got %v", err)
	}
}

func TestReportStoreRequiresIDs(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	if err := manager.Reports().Store(ctx, &models.GeneratedReport{EngagementID: "eng_1"}); err == nil {
		t.Error("Expected error when report ID is empty")
	}
	if err := manager.Reports().Store(ctx, &models.GeneratedReport{ID: "rpt_1"}); err == nil {
		t.Error("Expected error when engagement ID is empty")
	}
}

func TestOutlookLatestAndQuarterLookup(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	_, err := manager.Outlooks().GetLatest(ctx)
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound with no outlooks stored, got %v", err)
	}

	q1 := &models.EconomicOutlook{Quarter: "2026Q1", Text: "Slowing growth."}
	if err := manager.Outlooks().Store(ctx, q1); err != nil {
		t.Fatalf("Failed to store Q1 outlook: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	q2 := &models.EconomicOutlook{Quarter: "2026q2", Text: "Steady conditions."}
	if err := manager.Outlooks().Store(ctx, q2); err != nil {
		t.Fatalf("Failed to store Q2 outlook: %v", err)
	}

	latest, err := manager.Outlooks().GetLatest(ctx)
	if err != nil {
		t.Fatalf("Failed to get latest outlook: %v", err)
	}
	if latest.Quarter != "2026Q2" {
		t.Errorf("Expected normalized 2026Q2 as latest, got %s", latest.Quarter)
	}
	if latest.Text != "Steady conditions." {
		t.Errorf("Expected Q2 text, got %q", latest.Text)
	}

	// Quarter lookup is case-insensitive
	got, err := manager.Outlooks().Get(ctx, "2026q1")
	if err != nil {
		t.Fatalf("Failed to get Q1 outlook: %v", err)
	}
	if got.Text != "Slowing growth." {
		t.Errorf("Expected Q1 text, got %q", got.Text)
	}

	// Re-storing a quarter replaces its text and bumps UpdatedAt
	time.Sleep(5 * time.Millisecond)
	q1Updated := &models.EconomicOutlook{Quarter: "2026Q1", Text: "Revised outlook."}
	if err := manager.Outlooks().Store(ctx, q1Updated); err != nil {
		t.Fatalf("Failed to update Q1 outlook: %v", err)
	}
	latest, err = manager.Outlooks().GetLatest(ctx)
	if err != nil {
		t.Fatalf("Failed to get latest outlook after update: %v", err)
	}
	if latest.Quarter != "2026Q1" {
		t.Errorf("Expected updated Q1 as latest, got %s", latest.Quarter)
	}
}

func TestKeyValueStorage(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	kv := manager.KeyValue()

	_, err := kv.Get(ctx, "claude_api_key")
	if !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("Expected ErrKeyNotFound, got %v", err)
	}

	if err := kv.Set(ctx, "Claude_API_Key", "sk-test-123", "Claude API key"); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}

	// Keys are case-insensitive
	value, err := kv.Get(ctx, "CLAUDE_API_KEY")
	if err != nil {
		t.Fatalf("Failed to get key: %v", err)
	}
	if value != "sk-test-123" {
		t.Errorf("Expected stored value, got %q", value)
	}

	all, err := kv.GetAll(ctx)
	if err != nil {
		t.Fatalf("Failed to get all pairs: %v", err)
	}
	if all["claude_api_key"] != "sk-test-123" {
		t.Errorf("Expected normalized key in map, got %v", all)
	}

	if err := kv.Delete(ctx, "claude_api_key"); err != nil {
		t.Fatalf("Failed to delete key: %v", err)
	}
	if err := kv.Delete(ctx, "claude_api_key"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound on second delete, got %v", err)
	}
}

func TestKeyValueUpsertReportsNewKeys(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	isNew, err := manager.kv.Upsert(ctx, "gemini_api_key", "g-1", "")
	if err != nil {
		t.Fatalf("Failed to upsert key: %v", err)
	}
	if !isNew {
		t.Error("Expected first upsert to report a new key")
	}

	isNew, err = manager.kv.Upsert(ctx, "gemini_api_key", "g-2", "")
	if err != nil {
		t.Fatalf("Failed to upsert existing key: %v", err)
	}
	if isNew {
		t.Error("Expected second upsert to report an existing key")
	}

	value, err := manager.KeyValue().Get(ctx, "gemini_api_key")
	if err != nil {
		t.Fatalf("Failed to get upserted key: %v", err)
	}
	if value != "g-2" {
		t.Errorf("Expected updated value, got %q", value)
	}
}

func TestLoadVariablesFromFiles(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	dir := t.TempDir()
	content := `[claude_api_key]
value = "sk-from-file"
description = "Claude API key"

[empty_key]
value = ""
`
	if err := os.WriteFile(filepath.Join(dir, "variables.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write variables file: %v", err)
	}

	if err := manager.LoadVariablesFromFiles(ctx, dir); err != nil {
		t.Fatalf("Failed to load variables: %v", err)
	}

	value, err := manager.KeyValue().Get(ctx, "claude_api_key")
	if err != nil {
		t.Fatalf("Failed to get loaded variable: %v", err)
	}
	if value != "sk-from-file" {
		t.Errorf("Expected value from file, got %q", value)
	}

	// Empty values are skipped, not stored
	if _, err := manager.KeyValue().Get(ctx, "empty_key"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Errorf("Expected empty value to be skipped, got %v", err)
	}
}
