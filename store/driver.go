package store

import (
	"context"
)

// Driver is an interface for store driver.
// It contains all methods that a storage backend should implement.
type Driver interface {
	Close() error

	// UserRecord model related methods. GetUser returns (nil, nil)
	// when no record exists for the identifier; the Store facade turns
	// that into a default record.
	GetUser(ctx context.Context, userID int64) (*UserRecord, error)
	UpsertUser(ctx context.Context, record *UserRecord) error
	CountUsers(ctx context.Context) (int, error)

	// Job model related methods. The job list is append-only.
	CreateJob(ctx context.Context, create *Job) (*Job, error)
	ListJobs(ctx context.Context) ([]*Job, error)
}
