// Package jobs defines the asynchronous import job model and the queue
// abstractions it moves through.
package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/budgetwise/internal/classify"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImportCSV represents a CSV import job.
	JobTypeImportCSV JobType = "import_csv"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
)

// ImportResult summarizes a finished import, including the reconciliation
// that ran after it.
type ImportResult struct {
	RowsTotal           int      `json:"rows_total"`
	RowsImported        int      `json:"rows_imported"`
	RowsFailed          int      `json:"rows_failed"`
	RowErrors           []string `json:"row_errors,omitempty"`
	TransactionsUpdated int      `json:"transactions_updated"`
	CategoriesCreated   int      `json:"categories_created"`
}

// ImportCSVJob represents one asynchronous CSV import. Jobs are never
// retried automatically: a failed import must be re-submitted by the user,
// since blindly re-running one would duplicate its successfully written rows.
type ImportCSVJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// AccountID is the account receiving the imported transactions.
	AccountID string `json:"account_id"`

	// SourceFile is the original file name, kept for provenance.
	SourceFile string `json:"source_file"`

	// GCSURI points at the archived copy of the raw CSV, when archiving is
	// enabled.
	GCSURI string `json:"gcs_uri,omitempty"`

	// CSVData is the raw file content. Cleared once the job finishes.
	CSVData []byte `json:"-"`

	// Mappings holds the user-confirmed column mapping, when the client
	// went through the map-columns preview. Empty means the worker asks
	// the classifier itself.
	Mappings []classify.ColumnMapping `json:"mappings,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// Result is populated when the job completes.
	Result *ImportResult `json:"result,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ImportCSVJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ImportCSVJob) GetType() JobType {
	return JobTypeImportCSV
}

// GetStatus implements the Job interface.
func (j *ImportCSVJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishImportCSV publishes a CSV import job.
	PublishImportCSV(ctx context.Context, job *ImportCSVJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job. Returning an error marks
// the job failed; it is never re-queued.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ImportCSVJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ImportCSVJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportCSVJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// AccountID filters jobs by target account.
	AccountID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
