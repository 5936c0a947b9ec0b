package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apperrors "databank/internal/errors"
)

// Record is implemented by every databank record type. Validate is the shape
// check every decoded record must pass before it is handed to a caller:
// object-shaped, backend-assigned id, required fields present.
type Record interface {
	Validate() error
}

// Resource is a typed client for one REST collection. The endpoint base path
// is normalized to end with a trailing slash; item operations append the id
// plus the same trailing slash, matching the backend's routing convention.
type Resource[T Record] struct {
	client *Client
	base   string
	logger *apperrors.Logger
}

// NewResource creates a resource client for the given collection path, for
// example "/api/skills" or "/api/skills/".
func NewResource[T Record](client *Client, basePath string, logger *apperrors.Logger) *Resource[T] {
	return &Resource[T]{
		client: client,
		base:   normalizeBasePath(basePath),
		logger: logger,
	}
}

func normalizeBasePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// BasePath returns the normalized collection path.
func (r *Resource[T]) BasePath() string {
	return r.base
}

func (r *Resource[T]) itemPath(id int) string {
	return fmt.Sprintf("%s%d/", r.base, id)
}

// List fetches the collection. It never fails: a transport error, an HTTP
// error, or a payload that is not an array all degrade to an empty slice so
// list views render "no items" instead of crashing. Entries that fail the
// shape check are dropped silently.
func (r *Resource[T]) List(ctx context.Context, query url.Values) []T {
	var raw json.RawMessage
	err := r.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   r.base,
		Query:  query,
	}, &raw)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("List request failed, returning empty collection",
				"path", r.base, "error", err.Error())
		}
		return []T{}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		if r.logger != nil {
			r.logger.Warn("List response was not an array, returning empty collection",
				"path", r.base)
		}
		return []T{}
	}

	records := make([]T, 0, len(elements))
	for _, element := range elements {
		var record T
		if err := json.Unmarshal(element, &record); err != nil {
			if r.logger != nil {
				r.logger.Debug("Dropping undecodable list entry", "path", r.base)
			}
			continue
		}
		if err := record.Validate(); err != nil {
			if r.logger != nil {
				r.logger.Debug("Dropping malformed list entry",
					"path", r.base, "reason", err.Error())
			}
			continue
		}
		records = append(records, record)
	}
	return records
}

// Get fetches one record by id. A null body yields the zero value; transport
// and HTTP errors propagate to the caller.
func (r *Resource[T]) Get(ctx context.Context, id int) (T, error) {
	var record T
	err := r.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   r.itemPath(id),
	}, &record)
	return record, err
}

// Create posts a new record and returns it as stored by the backend.
func (r *Resource[T]) Create(ctx context.Context, payload any) (T, error) {
	var record T
	err := r.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   r.base,
		Body:   payload,
	}, &record)
	return record, err
}

// Update modifies a record in place, keyed by id.
func (r *Resource[T]) Update(ctx context.Context, id int, payload any) (T, error) {
	var record T
	err := r.client.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   r.itemPath(id),
		Body:   payload,
	}, &record)
	return record, err
}

// Delete removes a record. It returns true on success; failures propagate
// because silently losing a write is unacceptable.
func (r *Resource[T]) Delete(ctx context.Context, id int) (bool, error) {
	if err := r.client.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   r.itemPath(id),
	}, nil); err != nil {
		return false, err
	}
	return true, nil
}

// Do issues a custom call against a sub-path of the collection, for
// backend-defined operations that are not plain CRUD.
func (r *Resource[T]) Do(ctx context.Context, method, subPath string, payload any, out any) error {
	return r.client.Do(ctx, Request{
		Method: method,
		Path:   r.base + strings.TrimPrefix(subPath, "/"),
		Body:   payload,
	}, out)
}
