package databank

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"databank/internal/api"
	"databank/internal/errors"
)

// Databank bundles one typed resource client per backend collection. All
// clients share the same underlying HTTP client, so the bearer token and the
// 401 handling behave identically across collections.
type Databank struct {
	Skills         *api.Resource[Skill]
	Experiences    *api.Resource[WorkExperience]
	Educations     *api.Resource[Education]
	Projects       *api.Resource[Project]
	Certifications *api.Resource[Certification]
	Languages      *api.Resource[Language]
	Resumes        *api.Resource[Resume]

	client *api.Client
	logger *errors.Logger
}

// New wires the per-collection resource clients against the backend's
// trailing-slash collection routes.
func New(client *api.Client, logger *errors.Logger) *Databank {
	return &Databank{
		Skills:         api.NewResource[Skill](client, "/api/skills/", logger),
		Experiences:    api.NewResource[WorkExperience](client, "/api/work-experiences/", logger),
		Educations:     api.NewResource[Education](client, "/api/educations/", logger),
		Projects:       api.NewResource[Project](client, "/api/projects/", logger),
		Certifications: api.NewResource[Certification](client, "/api/certifications/", logger),
		Languages:      api.NewResource[Language](client, "/api/languages/", logger),
		Resumes:        api.NewResource[Resume](client, "/api/resumes/", logger),
		client:         client,
		logger:         logger,
	}
}

// Me fetches the signed-in user's profile. A 401 here is the cheapest way to
// learn whether the persisted token is still honored by the backend.
func (d *Databank) Me(ctx context.Context) (Profile, error) {
	var profile Profile
	err := d.client.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/api/users/me",
	}, &profile)
	if err != nil {
		return Profile{}, err
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, errors.NewAPIError(errors.ErrCodeMalformedPayload,
			"profile response failed validation", err)
	}
	return profile, nil
}

// UpdateProfile updates mutable profile fields.
func (d *Databank) UpdateProfile(ctx context.Context, payload map[string]any) (Profile, error) {
	var profile Profile
	err := d.client.Do(ctx, api.Request{
		Method: http.MethodPut,
		Path:   "/api/users/me",
		Body:   payload,
	}, &profile)
	return profile, err
}

// APIKeys fetches the user's BYOK key settings. Only presence flags come
// back, never key material.
func (d *Databank) APIKeys(ctx context.Context) (APIKeySettings, error) {
	var settings APIKeySettings
	err := d.client.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/api/api-keys/",
	}, &settings)
	return settings, err
}

// UpdateAPIKeys uploads new key material or changes the preferred provider.
func (d *Databank) UpdateAPIKeys(ctx context.Context, update APIKeyUpdate) (APIKeySettings, error) {
	if err := update.ValidateInput(); err != nil {
		return APIKeySettings{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			err.Error(), nil)
	}
	var settings APIKeySettings
	err := d.client.Do(ctx, api.Request{
		Method: http.MethodPut,
		Path:   "/api/api-keys/",
		Body:   update,
	}, &settings)
	return settings, err
}

// DeleteAPIKey removes one provider's stored key.
func (d *Databank) DeleteAPIKey(ctx context.Context, provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	valid := false
	for _, p := range Providers {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("provider must be one of: %s", strings.Join(Providers, ", ")), nil)
	}
	return d.client.Do(ctx, api.Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/api/api-keys/%s/", provider),
	}, nil)
}

// ResumeDownloadURL returns the absolute URL for a resume export in the
// given format. The download itself goes through the shared client so the
// bearer token is attached.
func (d *Databank) ResumeDownloadURL(id int, format string) string {
	base := strings.TrimSuffix(d.client.BaseURL(), "/")
	return fmt.Sprintf("%s/api/resumes/%d/download?format=%s", base, id, format)
}

// DownloadResume fetches the rendered resume body in the given format.
func (d *Databank) DownloadResume(ctx context.Context, id int, format string) ([]byte, error) {
	var raw []byte
	err := d.client.DoRaw(ctx, api.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/api/resumes/%d/download", id),
		Query:  map[string][]string{"format": {format}},
	}, &raw)
	return raw, err
}
