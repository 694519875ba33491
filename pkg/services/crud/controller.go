// Package crud is the one parameterized list/create/update/delete
// controller behind every settings screen. Entity types differ, the
// contract does not: validate locally, call the backend, return the typed
// result.
package crud

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rcm-tools/rcm-atlas/pkg/client"
	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
)

// FieldError is one failed client-side validation check.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports all failed required-field checks for a payload.
// When returned, no network request was made.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Endpoint binds a controller to one backend resource.
type Endpoint struct {
	// Path is the collection path, e.g. "/api/Payers".
	Path string
	// Module is the permission module guarding the resource.
	Module string
}

type Controller[T any] struct {
	api      *client.Client
	endpoint Endpoint
	validate *validator.Validate
}

func NewController[T any](apiClient *client.Client, endpoint Endpoint) *Controller[T] {
	return &Controller[T]{
		api:      apiClient,
		endpoint: endpoint,
		validate: validator.New(),
	}
}

func (c *Controller[T]) Module() string {
	return c.endpoint.Module
}

func (c *Controller[T]) List(ctx context.Context, page api.Page) (*api.PagedData[T], error) {
	if page.Number <= 0 {
		page.Number = 1
	}
	if page.Size <= 0 {
		page.Size = 25
	}

	query := url.Values{}
	query.Set("pageNumber", strconv.Itoa(page.Number))
	query.Set("pageSize", strconv.Itoa(page.Size))
	if page.Search != "" {
		query.Set("search", page.Search)
	}

	var result api.PagedData[T]
	if err := c.api.GetJSON(ctx, c.endpoint.Path, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Controller[T]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	if err := c.api.GetJSON(ctx, c.endpoint.Path+"/"+id, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create validates the payload first; a validation failure never reaches
// the network.
func (c *Controller[T]) Create(ctx context.Context, item T) (*T, error) {
	if err := c.check(item); err != nil {
		return nil, err
	}
	var created T
	if err := c.api.PostJSON(ctx, c.endpoint.Path, item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Controller[T]) Update(ctx context.Context, id string, item T) (*T, error) {
	if err := c.check(item); err != nil {
		return nil, err
	}
	var updated T
	if err := c.api.PutJSON(ctx, c.endpoint.Path+"/"+id, item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Controller[T]) Delete(ctx context.Context, id string) error {
	return c.api.Delete(ctx, c.endpoint.Path+"/"+id)
}

func (c *Controller[T]) check(item T) error {
	err := c.validate.Struct(item)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return fmt.Errorf("validate payload: %w", err)
	}

	ve := &ValidationError{}
	for _, f := range invalid {
		msg := "is required"
		if f.Tag() != "required" {
			msg = fmt.Sprintf("failed %q check", f.Tag())
		}
		ve.Fields = append(ve.Fields, FieldError{Field: f.Field(), Message: msg})
	}
	return ve
}
