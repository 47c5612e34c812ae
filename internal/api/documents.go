package api

import (
	"context"
	"net/http"

	"careerkit/internal/errors"
	"careerkit/internal/types"
)

// Document collections
const (
	CollectionResumes         = "resumes"
	CollectionPortfolios      = "portfolios"
	CollectionJobDescriptions = "job-descriptions"
)

// Documents is the CRUD surface of one collection
type Documents[T any] struct {
	c          *Client
	collection string
}

// NewDocuments binds a collection to the client
func NewDocuments[T any](c *Client, collection string) *Documents[T] {
	return &Documents[T]{c: c, collection: collection}
}

func (c *Client) Resumes() *Documents[types.Resume] {
	return NewDocuments[types.Resume](c, CollectionResumes)
}

func (c *Client) Portfolios() *Documents[types.Portfolio] {
	return NewDocuments[types.Portfolio](c, CollectionPortfolios)
}

func (c *Client) JobDescriptions() *Documents[types.JobDescription] {
	return NewDocuments[types.JobDescription](c, CollectionJobDescriptions)
}

func (d *Documents[T]) path(id ...string) string {
	return d.c.resumePath(append([]string{"users", d.c.session.UserID, d.collection}, id...)...)
}

// List returns every document of the collection
func (d *Documents[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := d.c.do(ctx, request{endpoint: endpointDocuments, method: http.MethodGet, path: d.path(), out: &out})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one document
func (d *Documents[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out T
	err := d.c.do(ctx, request{endpoint: endpointDocuments, method: http.MethodGet, path: d.path(id), out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores a new document and returns it as saved
func (d *Documents[T]) Create(ctx context.Context, doc *T) (*T, error) {
	var out T
	err := d.c.do(ctx, request{endpoint: endpointDocuments, method: http.MethodPost, path: d.path(), body: doc, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces a document
func (d *Documents[T]) Update(ctx context.Context, id string, doc *T) (*T, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var out T
	err := d.c.do(ctx, request{endpoint: endpointDocuments, method: http.MethodPut, path: d.path(id), body: doc, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a document
func (d *Documents[T]) Delete(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return d.c.do(ctx, request{endpoint: endpointDocuments, method: http.MethodDelete, path: d.path(id)})
}

func requireID(id string) error {
	if id == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "document id is required", nil)
	}
	return nil
}
