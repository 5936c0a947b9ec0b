package workflow

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"sync"

	"databank/internal/databank"
	"databank/internal/errors"
)

// Phase is the workflow's position in the analyze-select-generate sequence.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseAnalyzed   Phase = "analyzed"
	PhaseGenerating Phase = "generating"
	PhaseGenerated  Phase = "generated"
	PhaseError      Phase = "error"
)

// Selection is a set of record ids with symmetric toggle semantics: toggling
// the same id twice returns the set to its original state.
type Selection struct {
	ids map[int]struct{}
}

// Toggle adds the id if absent, removes it if present. Returns true when the
// id is selected after the call.
func (s *Selection) Toggle(id int) bool {
	if s.ids == nil {
		s.ids = make(map[int]struct{})
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Contains reports whether the id is selected.
func (s *Selection) Contains(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int {
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len reports how many ids are selected.
func (s *Selection) Len() int {
	return len(s.ids)
}

func (s *Selection) clear() {
	s.ids = nil
}

// Workflow drives the resume-building sequence as an explicit state machine:
// analyze the job description, let the user adjust the selected records, then
// generate. Illegal orderings (generating before analyzing) are rejected
// instead of being representable.
type Workflow struct {
	analysis *databank.Analysis
	bank     *databank.Databank
	logger   *errors.Logger

	mu             sync.Mutex
	phase          Phase
	errMessage     string
	jobDescription string

	jobAnalysis databank.JobAnalysis
	match       databank.SkillMatch

	Skills         Selection
	Experiences    Selection
	Educations     Selection
	Projects       Selection
	Certifications Selection
	Languages      Selection

	generated *databank.GenerationResult
}

// New creates a workflow in the idle phase.
func New(analysis *databank.Analysis, bank *databank.Databank, logger *errors.Logger) *Workflow {
	return &Workflow{
		analysis: analysis,
		bank:     bank,
		logger:   logger,
		phase:    PhaseIdle,
	}
}

// Phase reports the current phase.
func (w *Workflow) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// ErrMessage returns the user-facing message for the error phase, empty
// otherwise.
func (w *Workflow) ErrMessage() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMessage
}

// Analysis returns the last successful job analysis.
func (w *Workflow) Analysis() databank.JobAnalysis {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.jobAnalysis
}

// Match returns the last successful skill match.
func (w *Workflow) Match() databank.SkillMatch {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.match
}

// Result returns the generation result, nil before a successful generate.
func (w *Workflow) Result() *databank.GenerationResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generated
}

// Analyze runs the job analysis and skill match, then pre-selects every
// matched skill that maps to a databank record. A blank job description is
// rejected before any network call and leaves the phase untouched.
func (w *Workflow) Analyze(ctx context.Context, jobDescription string) error {
	if strings.TrimSpace(jobDescription) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job description cannot be empty", nil)
	}

	w.mu.Lock()
	if w.phase == PhaseAnalyzing || w.phase == PhaseGenerating {
		w.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"another operation is already running", nil)
	}
	w.phase = PhaseAnalyzing
	w.errMessage = ""
	w.jobDescription = jobDescription
	// A new analysis invalidates everything downstream.
	w.jobAnalysis = databank.JobAnalysis{}
	w.match = databank.SkillMatch{}
	w.generated = nil
	w.Skills.clear()
	w.mu.Unlock()

	jobAnalysis, err := w.analysis.Analyze(ctx, jobDescription)
	if err != nil {
		w.fail(err)
		return err
	}
	match, err := w.analysis.MatchSkills(ctx, jobDescription)
	if err != nil {
		w.fail(err)
		return err
	}

	preselect := w.resolveMatchedSkillIDs(ctx, match.MatchingSkills)

	w.mu.Lock()
	w.phase = PhaseAnalyzed
	w.jobAnalysis = jobAnalysis
	w.match = match
	for _, id := range preselect {
		if !w.Skills.Contains(id) {
			w.Skills.Toggle(id)
		}
	}
	w.mu.Unlock()

	if w.logger != nil {
		w.logger.Info("Job description analyzed",
			"job_title", jobAnalysis.JobTitle,
			"matched_skills", len(match.MatchingSkills),
			"preselected", len(preselect))
	}
	return nil
}

// resolveMatchedSkillIDs maps matched entries to databank skill ids. Entries
// that already carry an id are used as-is; name-only entries are resolved
// against the databank case-insensitively. Unresolvable entries are skipped.
func (w *Workflow) resolveMatchedSkillIDs(ctx context.Context, matched []databank.MatchedSkill) []int {
	ids := make([]int, 0, len(matched))
	var byName map[string]int

	for _, m := range matched {
		if m.ID > 0 {
			ids = append(ids, m.ID)
			continue
		}
		if m.Name == "" {
			continue
		}
		if byName == nil {
			byName = make(map[string]int)
			for _, skill := range w.bank.Skills.List(ctx, nil) {
				byName[strings.ToLower(skill.Name)] = skill.ID
			}
		}
		if id, ok := byName[strings.ToLower(m.Name)]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CanGenerate reports whether generation is currently allowed: analysis has
// succeeded and both a skill and a work experience are selected.
func (w *Workflow) CanGenerate() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canGenerateLocked()
}

func (w *Workflow) canGenerateLocked() bool {
	switch w.phase {
	case PhaseAnalyzed, PhaseGenerated:
	case PhaseError:
		// Retry after a failed generate is allowed as long as the analysis
		// survived.
		if w.jobAnalysis.JobTitle == "" && len(w.jobAnalysis.RequiredSkills) == 0 {
			return false
		}
	default:
		return false
	}
	return w.Skills.Len() > 0 && w.Experiences.Len() > 0
}

// Generate requests resume generation from the selected records. It is
// blocked, with no network call, until analysis has succeeded and the
// selection holds at least one skill and one work experience.
func (w *Workflow) Generate(ctx context.Context, title, format string) (*databank.GenerationResult, error) {
	w.mu.Lock()
	if !w.canGenerateLocked() {
		message := "analyze a job description first"
		if w.phase == PhaseAnalyzed || w.phase == PhaseGenerated || w.phase == PhaseError {
			message = "select at least one skill and one work experience to include"
		}
		w.mu.Unlock()
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, message, nil)
	}
	req := databank.GenerateRequest{
		JobDescription:   w.jobDescription,
		Title:            title,
		Format:           format,
		SkillIDs:         w.Skills.IDs(),
		ExperienceIDs:    w.Experiences.IDs(),
		EducationIDs:     w.Educations.IDs(),
		ProjectIDs:       w.Projects.IDs(),
		CertificationIDs: w.Certifications.IDs(),
		LanguageIDs:      w.Languages.IDs(),
	}
	w.phase = PhaseGenerating
	w.errMessage = ""
	w.generated = nil
	w.mu.Unlock()

	result, err := w.analysis.GenerateResume(ctx, req)
	if err != nil {
		// Generation failure keeps the analysis so the user can retry
		// without repeating the analyze step.
		w.fail(err)
		return nil, err
	}

	w.mu.Lock()
	w.phase = PhaseGenerated
	w.generated = &result
	w.mu.Unlock()

	if w.logger != nil {
		w.logger.Info("Resume generated",
			"resume_id", result.Resume.ID,
			"ats_score", result.ATSScore.String())
	}
	return &result, nil
}

// Reset returns the workflow to idle, dropping all state.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.phase = PhaseIdle
	w.errMessage = ""
	w.jobDescription = ""
	w.jobAnalysis = databank.JobAnalysis{}
	w.match = databank.SkillMatch{}
	w.generated = nil
	w.Skills.clear()
	w.Experiences.clear()
	w.Educations.clear()
	w.Projects.clear()
	w.Certifications.clear()
	w.Languages.clear()
}

func (w *Workflow) fail(err error) {
	w.mu.Lock()
	w.phase = PhaseError
	w.errMessage = userMessage(err)
	w.generated = nil
	w.mu.Unlock()
}

// userMessage reduces an error chain to the short human-readable string the
// user sees.
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
