// Package db creates the storage driver selected by the profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/jobbot/internal/profile"
	"github.com/hrygo/jobbot/store"
	"github.com/hrygo/jobbot/store/db/jsonfile"
	"github.com/hrygo/jobbot/store/db/postgres"
	"github.com/hrygo/jobbot/store/db/sqlite"
)

// NewDBDriver creates a new storage driver based on profile.
//
// jsonfile is the default and keeps the original two-document layout
// (user_data.json + jobs.json). sqlite and postgres store one row per
// user instead of rewriting a whole document on every save.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "jsonfile":
		driver, err = jsonfile.NewDB(profile)
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown storage driver %q: only 'jsonfile', 'sqlite' and 'postgres' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage driver")
	}
	return driver, nil
}
