// Package bigquery implements the persistence gateway on top of BigQuery.
// Each entity collection is a table in one dataset; all writes go through
// parameterized DML so freshly written rows are immediately visible to the
// reconciliation pass's bulk updates.
package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateCategory is returned when a category create or rename would
// collide case-insensitively with an existing name.
var ErrDuplicateCategory = errors.New("category name already exists")

// Repository is the concrete persistence gateway. It holds a shared BigQuery
// client to avoid creating a new connection for each operation.
type Repository struct {
	client    *bigquery.Client
	projectID string
	dataset   string
}

// NewRepository creates a Repository with its own BigQuery client.
func NewRepository(ctx context.Context, projectID, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return NewRepositoryWithClient(client, projectID, dataset), nil
}

// NewRepositoryWithClient creates a Repository around an existing client.
func NewRepositoryWithClient(client *bigquery.Client, projectID, dataset string) *Repository {
	return &Repository{client: client, projectID: projectID, dataset: dataset}
}

// Close closes the underlying BigQuery client.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// table returns the fully qualified, backtick-quoted table name.
func (r *Repository) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", r.projectID, r.dataset, name)
}

// runDML executes a DML statement and waits for the job to finish.
func (r *Repository) runDML(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := r.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
