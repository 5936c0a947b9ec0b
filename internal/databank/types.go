package databank

import (
	"fmt"
	"slices"
	"strings"
)

// Experience levels accepted by the backend for skills.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
	LevelExpert       = "Expert"
)

var experienceLevels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert}

// AI providers accepted by the backend for BYOK keys.
var Providers = []string{"openai", "anthropic", "google"}

// Skill is one databank skill record.
type Skill struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	ExperienceLevel   string `json:"experience_level"`
	YearsOfExperience *int   `json:"years_of_experience,omitempty"`
	Details           string `json:"details,omitempty"`
	Keywords          string `json:"keywords,omitempty"`
}

func (s Skill) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("skill is missing its id")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("skill name is required")
	}
	return nil
}

// ValidateInput checks a skill before it is sent to the backend. Unlike the
// wire-shape check in Validate, this enforces caller-side rules so no
// network call is made for an invalid record.
func (s Skill) ValidateInput() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("skill name is required")
	}
	if s.ExperienceLevel != "" && !slices.Contains(experienceLevels, s.ExperienceLevel) {
		return fmt.Errorf("experience level must be one of: %s", strings.Join(experienceLevels, ", "))
	}
	if s.YearsOfExperience != nil && *s.YearsOfExperience < 0 {
		return fmt.Errorf("years of experience cannot be negative")
	}
	return nil
}

// WorkExperience is one databank work-experience record. Dates are ISO
// strings; the backend owns their parsing.
type WorkExperience struct {
	ID               int    `json:"id"`
	Company          string `json:"company"`
	JobTitle         string `json:"job_title"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date,omitempty"`
	IsCurrent        bool   `json:"is_current"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Country          string `json:"country,omitempty"`
	Description      string `json:"description,omitempty"`
	Responsibilities string `json:"responsibilities,omitempty"`
	Achievements     string `json:"achievements,omitempty"`
}

func (w WorkExperience) Validate() error {
	if w.ID <= 0 {
		return fmt.Errorf("work experience is missing its id")
	}
	if strings.TrimSpace(w.Company) == "" || strings.TrimSpace(w.JobTitle) == "" {
		return fmt.Errorf("work experience requires company and job title")
	}
	return nil
}

func (w WorkExperience) ValidateInput() error {
	if strings.TrimSpace(w.Company) == "" {
		return fmt.Errorf("company is required")
	}
	if strings.TrimSpace(w.JobTitle) == "" {
		return fmt.Errorf("job title is required")
	}
	if strings.TrimSpace(w.StartDate) == "" {
		return fmt.Errorf("start date is required")
	}
	if w.IsCurrent && w.EndDate != "" {
		return fmt.Errorf("a current position cannot have an end date")
	}
	return nil
}

// Education is one databank education record.
type Education struct {
	ID           int    `json:"id"`
	Institution  string `json:"institution"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date,omitempty"`
	IsCurrent    bool   `json:"is_current"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
	GPA          string `json:"gpa,omitempty"`
	Achievements string `json:"achievements,omitempty"`
	Activities   string `json:"activities,omitempty"`
}

func (e Education) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("education is missing its id")
	}
	if strings.TrimSpace(e.Institution) == "" {
		return fmt.Errorf("education requires an institution")
	}
	return nil
}

func (e Education) ValidateInput() error {
	if strings.TrimSpace(e.Institution) == "" {
		return fmt.Errorf("institution is required")
	}
	if strings.TrimSpace(e.Degree) == "" {
		return fmt.Errorf("degree is required")
	}
	if strings.TrimSpace(e.StartDate) == "" {
		return fmt.Errorf("start date is required")
	}
	if e.IsCurrent && e.EndDate != "" {
		return fmt.Errorf("current education cannot have an end date")
	}
	return nil
}

// Project is one databank project record.
type Project struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	URL          string `json:"url,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	IsCurrent    bool   `json:"is_current"`
	Technologies string `json:"technologies,omitempty"`
}

func (p Project) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("project is missing its id")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project requires a name")
	}
	return nil
}

func (p Project) ValidateInput() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("project description is required")
	}
	if p.IsCurrent && p.EndDate != "" {
		return fmt.Errorf("a current project cannot have an end date")
	}
	return nil
}

// Certification is one databank certification record.
type Certification struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	IssuingOrganization string `json:"issuing_organization"`
	IssueDate           string `json:"issue_date"`
	ExpirationDate      string `json:"expiration_date,omitempty"`
	CredentialID        string `json:"credential_id,omitempty"`
	CredentialURL       string `json:"credential_url,omitempty"`
}

func (c Certification) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("certification is missing its id")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("certification requires a name")
	}
	return nil
}

func (c Certification) ValidateInput() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("certification name is required")
	}
	if strings.TrimSpace(c.IssuingOrganization) == "" {
		return fmt.Errorf("issuing organization is required")
	}
	if strings.TrimSpace(c.IssueDate) == "" {
		return fmt.Errorf("issue date is required")
	}
	return nil
}

// Language is one databank language record.
type Language struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Proficiency string `json:"proficiency"`
}

func (l Language) Validate() error {
	if l.ID <= 0 {
		return fmt.Errorf("language is missing its id")
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("language requires a name")
	}
	return nil
}

func (l Language) ValidateInput() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("language name is required")
	}
	if strings.TrimSpace(l.Proficiency) == "" {
		return fmt.Errorf("proficiency is required")
	}
	return nil
}

// Resume is a generated resume as stored by the backend.
type Resume struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	LastModified string `json:"last_modified"`
	Format       string `json:"format"`
	JobTitle     string `json:"job_title,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	ATSScore     *int   `json:"ats_score,omitempty"`
	ATSFeedback  string `json:"ats_feedback,omitempty"`

	IncludeSummary        bool `json:"include_summary"`
	IncludeSkills         bool `json:"include_skills"`
	IncludeExperience     bool `json:"include_experience"`
	IncludeEducation      bool `json:"include_education"`
	IncludeProjects       bool `json:"include_projects"`
	IncludeCertifications bool `json:"include_certifications"`
	IncludeLanguages      bool `json:"include_languages"`
}

func (r Resume) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("resume is missing its id")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("resume requires a title")
	}
	return nil
}

// APIKeySettings is the backend's view of the user's BYOK keys. The actual
// key material is never returned, only whether a key exists per provider.
type APIKeySettings struct {
	PreferredProvider string `json:"preferred_ai_provider"`
	HasOpenAIKey      bool   `json:"has_openai_key"`
	HasAnthropicKey   bool   `json:"has_anthropic_key"`
	HasGoogleKey      bool   `json:"has_google_key"`
}

// APIKeyUpdate carries new key material to the backend. Nil fields are left
// unchanged server-side.
type APIKeyUpdate struct {
	OpenAIKey         *string `json:"api_key_openai,omitempty"`
	AnthropicKey      *string `json:"api_key_anthropic,omitempty"`
	GoogleKey         *string `json:"api_key_google,omitempty"`
	PreferredProvider *string `json:"preferred_ai_provider,omitempty"`
}

func (u APIKeyUpdate) ValidateInput() error {
	if u.OpenAIKey == nil && u.AnthropicKey == nil && u.GoogleKey == nil && u.PreferredProvider == nil {
		return fmt.Errorf("nothing to update")
	}
	if u.PreferredProvider != nil && !slices.Contains(Providers, *u.PreferredProvider) {
		return fmt.Errorf("provider must be one of: %s", strings.Join(Providers, ", "))
	}
	return nil
}

// Profile is the signed-in user's account record.
type Profile struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

func (p Profile) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("profile is missing its id")
	}
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("profile requires an email")
	}
	return nil
}
