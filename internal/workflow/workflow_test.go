package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"databank/internal/api"
	"databank/internal/config"
	"databank/internal/databank"
)

// fakeBackend serves the minimal routes the workflow touches. Handlers can be
// replaced per test; unset routes return 404.
type fakeBackend struct {
	server   *httptest.Server
	requests atomic.Int64

	analyzeBody  string
	matchBody    string
	skillsBody   string
	generateBody string
	generateCode int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		analyzeBody:  `{"job_title":"Go Engineer","required_skills":["Go"]}`,
		matchBody:    `{"matching_skills":[],"overall_match_percentage":80}`,
		skillsBody:   `[]`,
		generateBody: `{"resume":{"id":1,"title":"Go Engineer","content":"..."},"ats_score":90}`,
		generateCode: http.StatusOK,
	}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.requests.Add(1)
		switch r.URL.Path {
		case "/api/job-analysis/analyze":
			w.Write([]byte(fb.analyzeBody))
		case "/api/job-analysis/match-skills":
			w.Write([]byte(fb.matchBody))
		case "/api/skills/":
			w.Write([]byte(fb.skillsBody))
		case "/api/job-analysis/generate-anti-hallucination-resume":
			w.WriteHeader(fb.generateCode)
			w.Write([]byte(fb.generateBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

func newTestWorkflow(t *testing.T, fb *fakeBackend) *Workflow {
	t.Helper()
	client, err := api.NewClient(api.Options{BaseURL: fb.server.URL, Timeout: 5 * time.Second},
		api.NewMemoryTokenStore(), nil, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	bank := databank.New(client, nil)
	analysis := databank.NewAnalysis(client, config.AnalysisConfig{}, nil)
	return New(analysis, bank, nil)
}

func TestSelectionToggleIsSymmetric(t *testing.T) {
	var s Selection

	if !s.Toggle(3) {
		t.Error("First toggle must select")
	}
	if !s.Contains(3) {
		t.Error("Expected 3 to be selected")
	}
	if s.Toggle(3) {
		t.Error("Second toggle must deselect")
	}
	if s.Contains(3) {
		t.Error("Expected 3 to be deselected after the second toggle")
	}
	if s.Len() != 0 {
		t.Errorf("Expected an empty selection, got %d entries", s.Len())
	}
}

func TestSelectionIDsAreSorted(t *testing.T) {
	var s Selection
	for _, id := range []int{42, 7, 19} {
		s.Toggle(id)
	}
	ids := s.IDs()
	if len(ids) != 3 || ids[0] != 7 || ids[1] != 19 || ids[2] != 42 {
		t.Errorf("Expected [7 19 42], got %v", ids)
	}
}

func TestAnalyzeRejectsBlankInputWithoutStateChange(t *testing.T) {
	fb := newFakeBackend(t)
	wf := newTestWorkflow(t, fb)

	for _, jd := range []string{"", "   ", "\n\t"} {
		if err := wf.Analyze(context.Background(), jd); err == nil {
			t.Errorf("Expected an error for job description %q", jd)
		}
	}
	if wf.Phase() != PhaseIdle {
		t.Errorf("Blank input must leave the phase untouched, got %s", wf.Phase())
	}
	if fb.requests.Load() != 0 {
		t.Errorf("Blank input must not reach the backend, saw %d requests", fb.requests.Load())
	}
}

func TestAnalyzePreselectsMatchedSkillsByID(t *testing.T) {
	fb := newFakeBackend(t)
	fb.matchBody = `{"matching_skills":[{"id":4,"name":"Go"},{"id":9,"name":"SQL"}],"overall_match_percentage":75}`
	wf := newTestWorkflow(t, fb)

	if err := wf.Analyze(context.Background(), "Go engineer role"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if wf.Phase() != PhaseAnalyzed {
		t.Errorf("Expected phase analyzed, got %s", wf.Phase())
	}

	ids := wf.Skills.IDs()
	if len(ids) != 2 || ids[0] != 4 || ids[1] != 9 {
		t.Errorf("Expected pre-selected skills [4 9], got %v", ids)
	}
}

func TestAnalyzeResolvesNameOnlyMatchesAgainstTheDatabank(t *testing.T) {
	fb := newFakeBackend(t)
	fb.matchBody = `{"matching_skills":["go","Terraform","Unknown"],"overall_match_percentage":60}`
	fb.skillsBody = `[
		{"id":11,"name":"Go","category":"technical"},
		{"id":12,"name":"terraform","category":"technical"}
	]`
	wf := newTestWorkflow(t, fb)

	if err := wf.Analyze(context.Background(), "infra role"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	ids := wf.Skills.IDs()
	if len(ids) != 2 || ids[0] != 11 || ids[1] != 12 {
		t.Errorf("Expected case-insensitive resolution to [11 12], got %v", ids)
	}
	if wf.Skills.Contains(0) {
		t.Error("Unresolvable matches must not select anything")
	}
}

func TestAnalyzeClearsPreviousSelectionAndResult(t *testing.T) {
	fb := newFakeBackend(t)
	fb.matchBody = `{"matching_skills":[{"id":4,"name":"Go"}],"overall_match_percentage":75}`
	wf := newTestWorkflow(t, fb)

	if err := wf.Analyze(context.Background(), "first role"); err != nil {
		t.Fatalf("First Analyze failed: %v", err)
	}
	wf.Skills.Toggle(99)
	wf.Experiences.Toggle(1)
	if _, err := wf.Generate(context.Background(), "", ""); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if wf.Result() == nil {
		t.Fatal("Expected a generation result")
	}

	// Re-analyzing starts a fresh selection and drops the old result
	fb.matchBody = `{"matching_skills":[{"id":5,"name":"Rust"}],"overall_match_percentage":40}`
	if err := wf.Analyze(context.Background(), "second role"); err != nil {
		t.Fatalf("Second Analyze failed: %v", err)
	}

	ids := wf.Skills.IDs()
	if len(ids) != 1 || ids[0] != 5 {
		t.Errorf("Expected selection [5] after re-analysis, got %v", ids)
	}
	if wf.Result() != nil {
		t.Error("Expected the previous generation result to be dropped")
	}
	// Manual non-skill selections survive, only the skill set is rebuilt
	if !wf.Experiences.Contains(1) {
		t.Error("Expected the experience selection to survive re-analysis")
	}
}

func TestGenerateBlockedBeforeAnalysis(t *testing.T) {
	fb := newFakeBackend(t)
	wf := newTestWorkflow(t, fb)

	wf.Skills.Toggle(1)
	wf.Experiences.Toggle(2)

	_, err := wf.Generate(context.Background(), "", "")
	if err == nil {
		t.Fatal("Expected generation to be blocked before analysis")
	}
	if msg := err.Error(); msg == "" {
		t.Error("Expected a user-facing message")
	}
	if fb.requests.Load() != 0 {
		t.Errorf("Blocked generation must not reach the backend, saw %d requests", fb.requests.Load())
	}
}

func TestGenerateRequiresBothSkillAndExperience(t *testing.T) {
	tests := []struct {
		name        string
		skills      []int
		experiences []int
		blocked     bool
	}{
		{name: "nothing selected", blocked: true},
		{name: "skill only", skills: []int{1}, blocked: true},
		{name: "experience only", experiences: []int{2}, blocked: true},
		{name: "both selected", skills: []int{1}, experiences: []int{2}, blocked: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.matchBody = `{"matching_skills":[],"overall_match_percentage":50}`
			wf := newTestWorkflow(t, fb)

			if err := wf.Analyze(context.Background(), "role"); err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			for _, id := range tt.skills {
				wf.Skills.Toggle(id)
			}
			for _, id := range tt.experiences {
				wf.Experiences.Toggle(id)
			}

			if got := wf.CanGenerate(); got == tt.blocked {
				t.Errorf("CanGenerate = %v, expected %v", got, !tt.blocked)
			}

			before := fb.requests.Load()
			_, err := wf.Generate(context.Background(), "", "")
			if tt.blocked {
				if err == nil {
					t.Fatal("Expected generation to be blocked")
				}
				if fb.requests.Load() != before {
					t.Error("Blocked generation must not issue a request")
				}
			} else if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
		})
	}
}

func TestGenerateSendsTheSelectedIDs(t *testing.T) {
	fb := newFakeBackend(t)
	fb.matchBody = `{"matching_skills":[{"id":4,"name":"Go"}],"overall_match_percentage":75}`

	var captured databank.GenerateRequest
	fb.server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/job-analysis/analyze":
			w.Write([]byte(fb.analyzeBody))
		case "/api/job-analysis/match-skills":
			w.Write([]byte(fb.matchBody))
		case "/api/job-analysis/generate-anti-hallucination-resume":
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("Generate request body was not valid: %v", err)
			}
			w.Write([]byte(fb.generateBody))
		default:
			http.NotFound(w, r)
		}
	})

	wf := newTestWorkflow(t, fb)
	if err := wf.Analyze(context.Background(), "role description"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	wf.Experiences.Toggle(20)
	wf.Educations.Toggle(30)

	if _, err := wf.Generate(context.Background(), "My Resume", "markdown"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if captured.JobDescription != "role description" {
		t.Errorf("Expected the analyzed job description, got %q", captured.JobDescription)
	}
	if captured.Title != "My Resume" || captured.Format != "markdown" {
		t.Errorf("Title/format not forwarded: %+v", captured)
	}
	if len(captured.SkillIDs) != 1 || captured.SkillIDs[0] != 4 {
		t.Errorf("Expected skill ids [4], got %v", captured.SkillIDs)
	}
	if len(captured.ExperienceIDs) != 1 || captured.ExperienceIDs[0] != 20 {
		t.Errorf("Expected experience ids [20], got %v", captured.ExperienceIDs)
	}
	if len(captured.EducationIDs) != 1 || captured.EducationIDs[0] != 30 {
		t.Errorf("Expected education ids [30], got %v", captured.EducationIDs)
	}
}

func TestGenerateFailureKeepsAnalysisForRetry(t *testing.T) {
	fb := newFakeBackend(t)
	fb.matchBody = `{"matching_skills":[{"id":4,"name":"Go"}],"overall_match_percentage":75}`
	fb.generateCode = http.StatusBadGateway
	fb.generateBody = `{"detail":"provider unavailable"}`

	wf := newTestWorkflow(t, fb)
	if err := wf.Analyze(context.Background(), "role"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	wf.Experiences.Toggle(2)

	if _, err := wf.Generate(context.Background(), "", ""); err == nil {
		t.Fatal("Expected generation to fail")
	}
	if wf.Phase() != PhaseError {
		t.Errorf("Expected phase error, got %s", wf.Phase())
	}
	if wf.ErrMessage() == "" {
		t.Error("Expected a user-facing error message")
	}
	if wf.Result() != nil {
		t.Error("A failed generate must not leave a result behind")
	}

	// The surviving analysis allows an immediate retry
	if !wf.CanGenerate() {
		t.Error("Expected retry to be possible after a failed generate")
	}
	fb.generateCode = http.StatusOK
	fb.generateBody = `{"resume":{"id":2,"title":"Retry","content":"..."},"ats_score":"88"}`
	result, err := wf.Generate(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if wf.Phase() != PhaseGenerated {
		t.Errorf("Expected phase generated, got %s", wf.Phase())
	}
	if !result.ATSScore.Valid || result.ATSScore.Value != 88 {
		t.Errorf("Expected the string score to decode to 88, got %+v", result.ATSScore)
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	fb := newFakeBackend(t)
	fb.matchBody = `{"matching_skills":[{"id":4,"name":"Go"}],"overall_match_percentage":75}`
	wf := newTestWorkflow(t, fb)

	if err := wf.Analyze(context.Background(), "role"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	wf.Experiences.Toggle(2)

	wf.Reset()

	if wf.Phase() != PhaseIdle {
		t.Errorf("Expected phase idle, got %s", wf.Phase())
	}
	if wf.Skills.Len() != 0 || wf.Experiences.Len() != 0 {
		t.Error("Expected all selections to be cleared")
	}
	if wf.CanGenerate() {
		t.Error("Generation must be blocked after Reset")
	}
}
