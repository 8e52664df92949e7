package bigquery

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_extraction_runs.sql", true, 1, "create_extraction_runs"},
		{"0042_add_index.sql", true, 42, "add_index"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := ParseMigrationFilename(tt.filename)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestLoadMigrations(t *testing.T) {
	second := "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (id INT64);"
	fsys := fstest.MapFS{
		"m/0002_second.sql": {Data: []byte(second)},
		"m/0001_first.sql":  {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (id INT64);")},
		"m/README.md":       {Data: []byte("not a migration")},
		"m/01_short.sql":    {Data: []byte("SELECT 1")},
	}

	migrations, err := LoadMigrations(fsys, "m", "proj", "ds")
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, "CREATE TABLE `proj.ds.b` (id INT64);", migrations[1].SQL)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(second))), migrations[1].Checksum)
}

func TestLoadMigrations_ChecksumIgnoresTarget(t *testing.T) {
	fsys := fstest.MapFS{"m/0001_a.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (x INT64);")}}

	a, err := LoadMigrations(fsys, "m", "proj-a", "ds")
	require.NoError(t, err)
	b, err := LoadMigrations(fsys, "m", "proj-b", "ds")
	require.NoError(t, err)

	assert.Equal(t, a[0].Checksum, b[0].Checksum)
	assert.NotEqual(t, a[0].SQL, b[0].SQL)
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := LoadMigrations(embeddedMigrations, "migrations", "proj", "statements")
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotContains(t, m.SQL, "{{")
		assert.Contains(t, m.SQL, "`proj.statements.")
	}
	assert.True(t, strings.Contains(migrations[1].SQL, "model_outputs"))
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := []AppliedMigration{{Version: 1}, {Version: 3}}

	pending := PendingMigrations(all, applied)

	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
	assert.Len(t, PendingMigrations(all, nil), 3)
}
