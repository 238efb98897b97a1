package postgres

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/jobbot/store"
)

func (d *DB) CreateJob(ctx context.Context, create *store.Job) (*store.Job, error) {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO job (uid, payload, created_ts)
		VALUES ($1, $2, $3)
	`, create.UID, []byte(create.Payload), create.CreatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert job")
	}
	return create, nil
}

func (d *DB) ListJobs(ctx context.Context) ([]*store.Job, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT uid, payload, created_ts FROM job ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query jobs")
	}
	defer rows.Close()

	jobs := []*store.Job{}
	for rows.Next() {
		job := &store.Job{}
		var payload []byte
		if err := rows.Scan(&job.UID, &payload, &job.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		job.Payload = payload
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate jobs")
	}
	return jobs, nil
}
