package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/db?sslmode=disable",
		migrateURL("postgres://u:p@localhost:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/tasks", migrateURL("postgresql://u@db/tasks"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}
