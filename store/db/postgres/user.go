package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hrygo/jobbot/store"
)

func (d *DB) GetUser(ctx context.Context, userID int64) (*store.UserRecord, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx, `SELECT data FROM user_record WHERE user_id = $1`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query user record")
	}

	record := &store.UserRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, errors.Wrap(err, "corrupt user record")
	}
	record.UserID = userID
	if record.Channels == nil {
		record.Channels = []string{}
	}
	if record.Jobs == nil {
		record.Jobs = []json.RawMessage{}
	}
	return record, nil
}

func (d *DB) UpsertUser(ctx context.Context, record *store.UserRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal user record")
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO user_record (user_id, data)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data
	`, record.UserID, data)
	if err != nil {
		return errors.Wrap(err, "failed to upsert user record")
	}
	return nil
}

func (d *DB) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM user_record`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count user records")
	}
	return count, nil
}
