package persistence

import (
	"testing"

	"github.com/marketplace-balance-ledger/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_RejectsMissingInputs(t *testing.T) {
	err := RunMigrations(logger.Discard(), "postgres://ledger@localhost/ledger", "")
	assert.EqualError(t, err, "migrations path cannot be empty")

	err = RunMigrations(logger.Discard(), "", "migrations/postgres")
	assert.EqualError(t, err, "database URL cannot be empty")
}

func TestMigrationSource(t *testing.T) {
	assert.Equal(t, "file://migrations/postgres", migrationSource("migrations/postgres"))
	assert.Equal(t, "file:///srv/ledger/migrations", migrationSource("/srv/ledger/migrations"))
	assert.Equal(t, "file://./migrations", migrationSource("file://./migrations"))
}
