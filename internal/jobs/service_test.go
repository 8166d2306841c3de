package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/assembly"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/events"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/narrative"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// ---- fakes -------------------------------------------------------------

type memEngagements struct {
	mu   sync.Mutex
	data map[string]*models.Engagement
}

func (m *memEngagements) Store(ctx context.Context, e *models.Engagement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *e
	m.data[e.ID] = &clone
	return nil
}

func (m *memEngagements) Get(ctx context.Context, id string) (*models.Engagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[id]
	if !ok {
		return nil, fmt.Errorf("engagement not found: %s", id)
	}
	clone := *e
	return &clone, nil
}

func (m *memEngagements) List(ctx context.Context) ([]*models.Engagement, error) { return nil, nil }
func (m *memEngagements) Delete(ctx context.Context, id string) error            { return nil }
func (m *memEngagements) Count(ctx context.Context) (int, error)                 { return len(m.data), nil }

type memReports struct {
	mu   sync.Mutex
	data map[string]*models.GeneratedReport
}

func (m *memReports) Store(ctx context.Context, r *models.GeneratedReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *r
	m.data[r.ID] = &clone
	return nil
}

func (m *memReports) Get(ctx context.Context, id string) (*models.GeneratedReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[id]
	if !ok {
		return nil, fmt.Errorf("report not found: %s", id)
	}
	clone := *r
	return &clone, nil
}

func (m *memReports) GetByEngagement(ctx context.Context, engagementID string) ([]*models.GeneratedReport, error) {
	return nil, nil
}
func (m *memReports) GetLatestByEngagement(ctx context.Context, engagementID string) (*models.GeneratedReport, error) {
	return nil, fmt.Errorf("not found")
}
func (m *memReports) Delete(ctx context.Context, id string) error { return nil }
func (m *memReports) Count(ctx context.Context) (int, error)      { return len(m.data), nil }

type memOutlooks struct{}

func (m *memOutlooks) Store(ctx context.Context, o *models.EconomicOutlook) error { return nil }
func (m *memOutlooks) Get(ctx context.Context, quarter string) (*models.EconomicOutlook, error) {
	return nil, fmt.Errorf("not found")
}
func (m *memOutlooks) GetLatest(ctx context.Context) (*models.EconomicOutlook, error) {
	return &models.EconomicOutlook{Quarter: "2026Q2", Text: "Steady conditions.", UpdatedAt: time.Now()}, nil
}

type memStorage struct {
	engagements *memEngagements
	reports     *memReports
}

func newMemStorage() *memStorage {
	return &memStorage{
		engagements: &memEngagements{data: make(map[string]*models.Engagement)},
		reports:     &memReports{data: make(map[string]*models.GeneratedReport)},
	}
}

func (m *memStorage) Engagements() interfaces.EngagementStorage { return m.engagements }
func (m *memStorage) Reports() interfaces.ReportStorage         { return m.reports }
func (m *memStorage) Outlooks() interfaces.OutlookStorage       { return &memOutlooks{} }
func (m *memStorage) KeyValue() interfaces.KeyValueStorage      { return nil }
func (m *memStorage) Close() error                              { return nil }

type fakeParser struct {
	parsed *models.ParsedModel
	err    error
}

func (f *fakeParser) Parse(ctx context.Context, data []byte) (*models.ParsedModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	clone := *f.parsed
	return &clone, nil
}

type fakeResearch struct {
	companyErr  error
	industryErr error
}

func (f *fakeResearch) ResearchCompany(ctx context.Context, companyName, contextText string) (*interfaces.CompanyResearch, error) {
	if f.companyErr != nil {
		return nil, f.companyErr
	}
	return &interfaces.CompanyResearch{Overview: "Research overview.", ConfidenceStr: "medium"}, nil
}

func (f *fakeResearch) ResearchIndustry(ctx context.Context, industry string) (*interfaces.IndustryResearch, error) {
	if f.industryErr != nil {
		return nil, f.industryErr
	}
	return &interfaces.IndustryResearch{Outlook: "Stable.", ConfidenceStr: "medium"}, nil
}

// gatedGeneration blocks Generate on an optional gate so tests control when
// the narrative stage finishes.
type gatedGeneration struct {
	gate chan struct{}
}

func (g *gatedGeneration) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "Generated section text.", nil
}

func (g *gatedGeneration) GenerateFromDocument(ctx context.Context, document []byte, systemPrompt, prompt string) (string, error) {
	return "", errors.New("not implemented")
}
func (g *gatedGeneration) Provider() string                      { return "fake" }
func (g *gatedGeneration) HealthCheck(ctx context.Context) error { return nil }
func (g *gatedGeneration) Close() error                          { return nil }

type fakeRenderer struct{}

func (f *fakeRenderer) Render(markdown string, title string) ([]byte, error) {
	return []byte("%PDF-1.4 " + title), nil
}
func (f *fakeRenderer) Format() string { return "pdf" }

// ---- harness -----------------------------------------------------------

type testHarness struct {
	service *Service
	storage *memStorage
	cfg     *common.Config
}

func newTestHarness(t *testing.T, gen interfaces.GenerationService, parsed *models.ParsedModel) *testHarness {
	t.Helper()
	logger := arbor.NewLogger()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Filesystem.Reports = t.TempDir()
	cfg.Templates.DefaultID = "standard-valuation"

	storage := newMemStorage()

	templates, err := template.NewService("", logger)
	require.NoError(t, err)

	narrativeSvc := narrative.NewService(gen, storage.Outlooks(), 2, logger)
	assembler := assembly.NewAssembler(logger)
	eventSvc := events.NewService(logger)

	orchestrator := NewOrchestrator(storage, &fakeParser{parsed: parsed}, templates, &fakeResearch{}, narrativeSvc, assembler, &fakeRenderer{}, eventSvc, cfg, logger)

	service, err := NewService(NewRegistry(logger), orchestrator, eventSvc, logger)
	require.NoError(t, err)

	return &testHarness{service: service, storage: storage, cfg: cfg}
}

func (h *testHarness) addEngagement(t *testing.T, id string) *models.Engagement {
	t.Helper()

	modelPath := filepath.Join(t.TempDir(), "model.xlsx")
	require.NoError(t, os.WriteFile(modelPath, []byte("workbook stub"), 0644))

	engagement := models.NewEngagement(id, "Meridian Fabrication LLC")
	engagement.Industry = "precision metal fabrication"
	engagement.ModelFilePath = modelPath
	require.NoError(t, h.storage.engagements.Store(context.Background(), engagement))

	return engagement
}

func defaultParsed() *models.ParsedModel {
	date := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	iv1, w1 := 4200000.0, 0.6
	iv2, w2 := 3800000.0, 0.4
	concluded := 4040000.0
	return &models.ParsedModel{
		CompanyName:   "Meridian Fabrication LLC",
		ValuationDate: &date,
		Industry:      "precision metal fabrication",
		Summary: &models.ValuationSummary{
			Approaches: []models.Approach{
				{Name: "Income Approach", IndicatedValue: &iv1, Weight: &w1},
				{Name: "Market Approach", IndicatedValue: &iv2, Weight: &w2},
			},
			ConcludedValue: &concluded,
		},
	}
}

func waitForTerminal(t *testing.T, svc *Service, jobID string) models.ReportJob {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := svc.Status(jobID)
		require.True(t, ok, "job vanished while waiting")
		if job.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return models.ReportJob{}
}

func waitForRunning(t *testing.T, svc *Service, jobID string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := svc.Status(jobID)
		require.True(t, ok)
		if job.Status == models.JobStatusRunning {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never started running")
}

// ---- tests -------------------------------------------------------------

func TestSubmitRunsPipelineToCompletion(t *testing.T) {
	h := newTestHarness(t, &gatedGeneration{}, defaultParsed())
	h.addEngagement(t, "eng_1")

	jobID, err := h.service.Submit(context.Background(), "eng_1", models.DefaultReportOptions())
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job := waitForTerminal(t, h.service, jobID)

	require.Equal(t, models.JobStatusComplete, job.Status, "job failed: %s", job.Error)
	assert.Equal(t, models.StageComplete, job.Stage)
	assert.Equal(t, 100, job.Progress)
	require.NotEmpty(t, job.ReportID)

	// The report record and artifact both exist.
	report, err := h.storage.reports.Get(context.Background(), job.ReportID)
	require.NoError(t, err)
	assert.Equal(t, "eng_1", report.EngagementID)
	assert.Equal(t, jobID, report.JobID)
	assert.Equal(t, "pdf", report.Format)

	data, err := os.ReadFile(report.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))

	// The engagement advanced to generated.
	engagement, err := h.storage.engagements.Get(context.Background(), "eng_1")
	require.NoError(t, err)
	assert.Equal(t, models.EngagementStatusGenerated, engagement.Status)
}

func TestSubmitRejectsConcurrentJobForEngagement(t *testing.T) {
	gate := make(chan struct{})
	h := newTestHarness(t, &gatedGeneration{gate: gate}, defaultParsed())
	h.addEngagement(t, "eng_1")

	jobID, err := h.service.Submit(context.Background(), "eng_1", models.DefaultReportOptions())
	require.NoError(t, err)

	_, err = h.service.Submit(context.Background(), "eng_1", models.DefaultReportOptions())
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)

	close(gate)
	job := waitForTerminal(t, h.service, jobID)
	require.Equal(t, models.JobStatusComplete, job.Status, "job failed: %s", job.Error)

	// Terminal job releases the engagement.
	jobID2, err := h.service.Submit(context.Background(), "eng_1", models.DefaultReportOptions())
	require.NoError(t, err)
	waitForTerminal(t, h.service, jobID2)
}

func TestJobFailsWhenEngagementMissing(t *testing.T) {
	h := newTestHarness(t, &gatedGeneration{}, defaultParsed())

	jobID, err := h.service.Submit(context.Background(), "eng_missing", models.DefaultReportOptions())
	require.NoError(t, err, "submit itself must not block on validation")

	job := waitForTerminal(t, h.service, jobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "load engagement")
	assert.Equal(t, models.StageFailed, job.Stage)
}

func TestCancelFailsJobAtStageBoundary(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	h := newTestHarness(t, &gatedGeneration{gate: gate}, defaultParsed())
	h.addEngagement(t, "eng_1")

	jobID, err := h.service.Submit(context.Background(), "eng_1", models.DefaultReportOptions())
	require.NoError(t, err)

	waitForRunning(t, h.service, jobID)
	require.NoError(t, h.service.Cancel(jobID))

	job := waitForTerminal(t, h.service, jobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "cancelled")

	// A terminal job cannot be cancelled again.
	assert.ErrorIs(t, h.service.Cancel(jobID), ErrJobNotCancellable)
	assert.ErrorIs(t, h.service.Cancel("job_unknown"), ErrJobNotFound)
}

func TestSkipFailedSectionsRecordsWarnings(t *testing.T) {
	// Research fails; with SkipFailedSections the job still completes and
	// carries the warning.
	h := newTestHarness(t, &gatedGeneration{}, defaultParsed())
	h.addEngagement(t, "eng_1")

	orchestrator := h.service.orchestrator
	orchestrator.research = &fakeResearch{companyErr: errors.New("rate limited")}

	opts := models.DefaultReportOptions()
	opts.SkipFailedSections = true

	jobID, err := h.service.Submit(context.Background(), "eng_1", opts)
	require.NoError(t, err)

	job := waitForTerminal(t, h.service, jobID)
	require.Equal(t, models.JobStatusComplete, job.Status, "job failed: %s", job.Error)

	var found bool
	for _, w := range job.Warnings {
		if strings.Contains(w, "company research failed") {
			found = true
		}
	}
	assert.True(t, found, "expected research failure warning, got %v", job.Warnings)
}

func TestResearchFailureFailsJobWhenNotSkipping(t *testing.T) {
	h := newTestHarness(t, &gatedGeneration{}, defaultParsed())
	h.addEngagement(t, "eng_1")

	h.service.orchestrator.research = &fakeResearch{companyErr: errors.New("authentication failed")}

	opts := models.DefaultReportOptions()
	opts.SkipFailedSections = false

	jobID, err := h.service.Submit(context.Background(), "eng_1", opts)
	require.NoError(t, err)

	job := waitForTerminal(t, h.service, jobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "research company")
}

func TestShutdownRejectsNewSubmissions(t *testing.T) {
	h := newTestHarness(t, &gatedGeneration{}, defaultParsed())
	h.addEngagement(t, "eng_1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.service.Shutdown(ctx))

	_, err := h.service.Submit(context.Background(), "eng_1", models.DefaultReportOptions())
	assert.ErrorIs(t, err, ErrShuttingDown)
}
