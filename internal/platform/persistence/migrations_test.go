package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Full migration runs need a live database; only the argument checks
// are covered here.
func TestRunMigrations_InputValidation(t *testing.T) {
	tests := []struct {
		name           string
		databaseURL    string
		migrationsPath string
		expectedError  string
	}{
		{
			name:           "EmptyMigrationsPath",
			databaseURL:    "postgres://test",
			migrationsPath: "",
			expectedError:  "migrations path cannot be empty",
		},
		{
			name:           "EmptyDatabaseURL",
			databaseURL:    "",
			migrationsPath: "file://./migrations/postgres",
			expectedError:  "database URL cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunMigrations(tt.databaseURL, tt.migrationsPath)
			assert.EqualError(t, err, tt.expectedError)
		})
	}
}
