// Package jsonfile implements the store driver on two JSON documents,
// matching the layout of the original bot: user_data.json holds a map
// from user identifier to record, jobs.json holds the job list.
//
// Every save rewrites the whole user document, so write latency grows
// with the total user count. Fine at small scale; use the sqlite or
// postgres driver past that.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/hrygo/jobbot/internal/profile"
	"github.com/hrygo/jobbot/store"
)

const (
	userDataFile = "user_data.json"
	jobsFile     = "jobs.json"
)

type DB struct {
	mu      sync.Mutex
	profile *profile.Profile

	userDataPath string
	jobsPath     string
}

// NewDB creates the driver and initializes both documents to an empty
// mapping/sequence when absent or empty, rewriting them when they
// cannot be read at all.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	d := &DB{
		profile:      profile,
		userDataPath: filepath.Join(profile.Data, userDataFile),
		jobsPath:     filepath.Join(profile.Data, jobsFile),
	}

	defaults := map[string]string{
		d.userDataPath: "{}",
		d.jobsPath:     "[]",
	}
	for path, defaultValue := range defaults {
		if err := initFile(path, defaultValue); err != nil {
			return nil, errors.Wrapf(err, "failed to initialize %s", path)
		}
	}

	return d, nil
}

func initFile(path, defaultValue string) error {
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return os.WriteFile(path, []byte(defaultValue), 0644)
	case err != nil:
		slog.Error("failed to read document, rewriting it", slog.String("path", path), slog.String("error", err.Error()))
		return os.WriteFile(path, []byte(defaultValue), 0644)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return os.WriteFile(path, []byte(defaultValue), 0644)
	}
	return nil
}

func (d *DB) Close() error {
	return nil
}

// readAllUsers parses the whole user document. A corrupt document is
// logged and treated as empty rather than failing the dialogue.
func (d *DB) readAllUsers() map[string]*store.UserRecord {
	all := map[string]*store.UserRecord{}
	raw, err := os.ReadFile(d.userDataPath)
	if err != nil {
		slog.Error("failed to read user data", slog.String("path", d.userDataPath), slog.String("error", err.Error()))
		return all
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return all
	}
	if err := json.Unmarshal(raw, &all); err != nil {
		slog.Error("corrupt user data document, treating as empty", slog.String("path", d.userDataPath), slog.String("error", err.Error()))
		return map[string]*store.UserRecord{}
	}
	return all
}

func (d *DB) writeAllUsers(all map[string]*store.UserRecord) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal user data")
	}
	if err := os.WriteFile(d.userDataPath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write user data")
	}
	return nil
}

func (d *DB) GetUser(_ context.Context, userID int64) (*store.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, ok := d.readAllUsers()[strconv.FormatInt(userID, 10)]
	if !ok {
		return nil, nil
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

func (d *DB) UpsertUser(_ context.Context, record *store.UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := strconv.FormatInt(record.UserID, 10)
	all := d.readAllUsers()
	all[key] = record
	if err := d.writeAllUsers(all); err != nil {
		slog.Error("failed to save user data", slog.String("error", err.Error()))
		// Best-effort fallback: persist at least this one record so
		// the in-flight dialogue step is not lost.
		fallback := map[string]*store.UserRecord{key: record}
		if ferr := d.writeAllUsers(fallback); ferr != nil {
			return err
		}
		return nil
	}
	return nil
}

func (d *DB) CountUsers(_ context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.readAllUsers()), nil
}

func (d *DB) readAllJobs() ([]*store.Job, error) {
	raw, err := os.ReadFile(d.jobsPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read jobs document")
	}
	jobs := []*store.Job{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return jobs, nil
	}
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return nil, errors.Wrap(err, "corrupt jobs document")
	}
	return jobs, nil
}

func (d *DB) CreateJob(_ context.Context, create *store.Job) (*store.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	jobs, err := d.readAllJobs()
	if err != nil {
		slog.Error("failed to load jobs, starting a new document", slog.String("error", err.Error()))
		jobs = []*store.Job{}
	}
	jobs = append(jobs, create)
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal jobs")
	}
	if err := os.WriteFile(d.jobsPath, data, 0644); err != nil {
		return nil, errors.Wrap(err, "failed to write jobs document")
	}
	return create, nil
}

func (d *DB) ListJobs(_ context.Context) ([]*store.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readAllJobs()
}
