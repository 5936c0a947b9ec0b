package databank

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"databank/internal/api"
	"databank/internal/config"
	"databank/internal/errors"
)

// Score is a percentage score as reported by the backend. Providers are not
// consistent about the wire type: the same field arrives as a number, a
// numeric string, or junk like "N/A". Decoding never fails; anything
// unusable leaves the score unset.
type Score struct {
	Value float64
	Valid bool
}

func (s *Score) UnmarshalJSON(data []byte) error {
	s.Value, s.Valid = 0, false

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		s.Value, s.Valid = number, true
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if number, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(text), "%"), 64); err == nil {
			s.Value, s.Valid = number, true
		}
	}
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// String renders the score for display, with "N/A" for an unset score.
func (s Score) String() string {
	if !s.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// JobAnalysis is the structured breakdown of a job description.
type JobAnalysis struct {
	JobTitle        string   `json:"job_title"`
	CompanyName     string   `json:"company_name"`
	RequiredSkills  []string `json:"required_skills"`
	PreferredSkills []string `json:"preferred_skills"`
	Experience      string   `json:"experience_level,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Summary         string   `json:"summary,omitempty"`
}

// MatchedSkill is one entry in the backend's matching_skills array. The
// field has shipped as both a bare name string and an {id, name} object, so
// decoding accepts either; an entry that is neither decodes to a zero value
// and is ignored by callers.
type MatchedSkill struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (m *MatchedSkill) UnmarshalJSON(data []byte) error {
	m.ID, m.Name = 0, ""

	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		m.Name = name
		return nil
	}

	type object MatchedSkill
	var obj object
	if err := json.Unmarshal(data, &obj); err == nil {
		*m = MatchedSkill(obj)
	}
	return nil
}

// SkillMatch is the backend's comparison of the job's requirements against
// the user's databank.
type SkillMatch struct {
	MatchingSkills         []MatchedSkill `json:"matching_skills"`
	MissingRequiredSkills  []string       `json:"missing_required_skills"`
	MissingPreferredSkills []string       `json:"missing_preferred_skills"`
	OverallMatch           Score          `json:"overall_match_percentage"`
}

// CoverageGap is one area where the databank is too thin to support a
// truthful resume for the analyzed job.
type CoverageGap struct {
	Area           string `json:"area"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation,omitempty"`
}

// CoverageReport says whether the databank can support generation for the
// analyzed job without inventing facts.
type CoverageReport struct {
	SufficientCoverage bool          `json:"sufficient_coverage"`
	CoverageScore      Score         `json:"coverage_score"`
	Gaps               []CoverageGap `json:"gaps"`
	Summary            string        `json:"summary,omitempty"`
}

// EnhancementSuggestion is one concrete databank addition the backend
// recommends before generating.
type EnhancementSuggestion struct {
	Section    string `json:"section"`
	Suggestion string `json:"suggestion"`
	Reason     string `json:"reason,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

// EnhancementReport lists suggested databank improvements for the job.
type EnhancementReport struct {
	Suggestions []EnhancementSuggestion `json:"suggestions"`
	Summary     string                  `json:"summary,omitempty"`
}

// GenerationResult is a generated resume plus its ATS review.
type GenerationResult struct {
	Resume      Resume   `json:"resume"`
	ATSScore    Score    `json:"ats_score"`
	ATSFeedback string   `json:"ats_feedback,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// AnalysisReport pairs the job breakdown with the databank match, which is
// how the analyze operation presents its result.
type AnalysisReport struct {
	Analysis JobAnalysis `json:"analysis"`
	Match    SkillMatch  `json:"match"`
}

// AnalyzeRequest carries the raw job description to the backend.
type AnalyzeRequest struct {
	JobDescription string `json:"job_description"`
}

// GenerateRequest narrows generation to the user's selected records. The
// backend only draws on what is listed here, nothing is invented to fill
// gaps.
type GenerateRequest struct {
	JobDescription   string `json:"job_description"`
	Title            string `json:"title,omitempty"`
	SkillIDs         []int  `json:"skill_ids"`
	ExperienceIDs    []int  `json:"work_experience_ids"`
	EducationIDs     []int  `json:"education_ids,omitempty"`
	ProjectIDs       []int  `json:"project_ids,omitempty"`
	CertificationIDs []int  `json:"certification_ids,omitempty"`
	LanguageIDs      []int  `json:"language_ids,omitempty"`
	Format           string `json:"format,omitempty"`
}

// Analysis is the client for the backend's AI-backed job-analysis routes.
// Every call runs through a shared rate limiter and a per-operation circuit
// breaker; the backend bills these against the user's own provider key, so
// the client throttles itself instead of hammering a paid API.
type Analysis struct {
	client   *api.Client
	limiter  *rate.Limiter
	breakers map[string]*AnalysisBreaker
	logger   *errors.Logger

	// OnRateLimitWait is called when a request has to wait for the limiter.
	OnRateLimitWait func(ctx context.Context)
}

const (
	opAnalyze     = "analyze"
	opMatchSkills = "matchSkills"
	opCoverage    = "validateCoverage"
	opEnhance     = "suggestEnhancements"
	opGenerate    = "generateResume"
)

// NewAnalysis wires the analysis client from configuration.
func NewAnalysis(client *api.Client, cfg config.AnalysisConfig, logger *errors.Logger) *Analysis {
	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.NewLimiter(
			rate.Limit(float64(cfg.RateLimit.RequestsPerMin)/60.0),
			cfg.RateLimit.BurstCapacity)
	}

	breakers := make(map[string]*AnalysisBreaker)
	for _, op := range []string{opAnalyze, opMatchSkills, opCoverage, opEnhance, opGenerate} {
		breakers[op] = NewAnalysisBreaker(op, cfg.CircuitBreaker, logger)
	}

	return &Analysis{
		client:   client,
		limiter:  limiter,
		breakers: breakers,
		logger:   logger,
	}
}

// call runs one analysis operation through the limiter and its breaker.
func (a *Analysis) call(ctx context.Context, operation, path string, payload any, out any) error {
	if a.limiter != nil && !a.limiter.Allow() {
		if a.OnRateLimitWait != nil {
			a.OnRateLimitWait(ctx)
		}
		if err := a.limiter.Wait(ctx); err != nil {
			return errors.NewNetworkError(errors.ErrCodeRequestFailed,
				"rate limit wait aborted", err)
		}
	}

	raw, err := a.breakers[operation].Execute(func() (json.RawMessage, error) {
		var body json.RawMessage
		err := a.client.Do(ctx, api.Request{
			Method: http.MethodPost,
			Path:   path,
			Body:   payload,
		}, &body)
		return body, err
	})
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewAPIError(errors.ErrCodeMalformedPayload,
			"unexpected response shape from "+path, err)
	}
	return nil
}

// Analyze extracts the structured requirements from a job description.
func (a *Analysis) Analyze(ctx context.Context, jobDescription string) (JobAnalysis, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return JobAnalysis{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job description cannot be empty", nil)
	}
	var analysis JobAnalysis
	err := a.call(ctx, opAnalyze, "/api/job-analysis/analyze",
		AnalyzeRequest{JobDescription: jobDescription}, &analysis)
	return analysis, err
}

// MatchSkills compares the job's requirements against the user's databank.
func (a *Analysis) MatchSkills(ctx context.Context, jobDescription string) (SkillMatch, error) {
	var match SkillMatch
	err := a.call(ctx, opMatchSkills, "/api/job-analysis/match-skills",
		AnalyzeRequest{JobDescription: jobDescription}, &match)
	return match, err
}

// ValidateCoverage checks whether the databank can support generation for
// this job without inventing facts.
func (a *Analysis) ValidateCoverage(ctx context.Context, jobDescription string) (CoverageReport, error) {
	var report CoverageReport
	err := a.call(ctx, opCoverage, "/api/job-analysis/validate-databank-coverage",
		AnalyzeRequest{JobDescription: jobDescription}, &report)
	return report, err
}

// SuggestEnhancements asks for concrete databank additions that would
// improve the match for this job.
func (a *Analysis) SuggestEnhancements(ctx context.Context, jobDescription string) (EnhancementReport, error) {
	var report EnhancementReport
	err := a.call(ctx, opEnhance, "/api/job-analysis/suggest-databank-enhancements",
		AnalyzeRequest{JobDescription: jobDescription}, &report)
	return report, err
}

// GenerateResume builds a resume from the selected records only.
func (a *Analysis) GenerateResume(ctx context.Context, req GenerateRequest) (GenerationResult, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return GenerationResult{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job description cannot be empty", nil)
	}
	if len(req.SkillIDs) == 0 || len(req.ExperienceIDs) == 0 {
		return GenerationResult{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"at least one skill and one work experience must be selected", nil)
	}
	var result GenerationResult
	err := a.call(ctx, opGenerate, "/api/job-analysis/generate-anti-hallucination-resume",
		req, &result)
	return result, err
}

// BreakerStats reports per-operation circuit breaker state for diagnostics.
func (a *Analysis) BreakerStats() map[string]map[string]any {
	stats := make(map[string]map[string]any, len(a.breakers))
	for op, breaker := range a.breakers {
		stats[op] = breaker.GetStats()
	}
	return stats
}
