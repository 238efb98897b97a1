package store

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/hrygo/jobbot/internal/profile"
	"github.com/hrygo/jobbot/store/cache"
)

// Store provides access to all persisted objects. Reads of user
// records never fail: a missing record, a read error or a corrupt
// document all yield a fresh default record so the dialogue can keep
// going (durability is traded for continuity).
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	userCache *cache.Cache // cache for user records
}

// Stats is a snapshot of stored object counts for the ops surface.
type Stats struct {
	Users int `json:"users"`
	Jobs  int `json:"jobs"`
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	// Default cache settings
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
		OnEviction:      nil,
	}

	store := &Store{
		driver:      driver,
		profile:     profile,
		cacheConfig: cacheConfig,
		userCache:   cache.New(cacheConfig),
	}

	return store
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.userCache.Close()
	return s.driver.Close()
}

func userCacheKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// GetUser returns the stored record for the user, or a fresh default
// record when none exists or the driver fails. The returned record is
// a copy; mutate and pass it back through UpsertUser.
func (s *Store) GetUser(ctx context.Context, userID int64) *UserRecord {
	if cached, ok := s.userCache.Get(userCacheKey(userID)); ok {
		if record, ok := cached.(*UserRecord); ok {
			return record.Clone()
		}
	}

	record, err := s.driver.GetUser(ctx, userID)
	if err != nil {
		slog.Error("failed to read user record, using default",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
		return NewUserRecord(userID)
	}
	if record == nil {
		return NewUserRecord(userID)
	}
	record.UserID = userID
	s.userCache.Set(userCacheKey(userID), record.Clone())
	return record
}

// UpsertUser replaces the whole record for record.UserID.
func (s *Store) UpsertUser(ctx context.Context, record *UserRecord) error {
	if err := s.driver.UpsertUser(ctx, record); err != nil {
		s.userCache.Delete(userCacheKey(record.UserID))
		return err
	}
	s.userCache.Set(userCacheKey(record.UserID), record.Clone())
	return nil
}

func (s *Store) CreateJob(ctx context.Context, create *Job) (*Job, error) {
	return s.driver.CreateJob(ctx, create)
}

func (s *Store) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.driver.ListJobs(ctx)
}

// Stats counts stored users and jobs.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.driver.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := s.driver.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Users: users, Jobs: len(jobs)}, nil
}
