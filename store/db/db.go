package db

import (
	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/internal/profile"
	"github.com/usevoxlog/voxlog/store"
	"github.com/usevoxlog/voxlog/store/db/postgres"
	"github.com/usevoxlog/voxlog/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the production driver with full vector search support
// (pgvector). SQLite is for development and testing: embeddings are stored as
// blobs and similarity is computed in-process, which is fine for small
// personal corpora but does not scale.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
