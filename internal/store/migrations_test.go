package store

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := `CREATE TABLE a (id TEXT);
CREATE TABLE b (id TEXT);`

	stmts := splitStatements(script)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id TEXT)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (id TEXT)", stmts[1])
}

func TestSplitStatements_SemicolonInsideComment(t *testing.T) {
	// A semicolon inside a line comment must not cut the statement that
	// follows it.
	script := `-- header; trailing text after the semicolon
CREATE TABLE a (
    id TEXT PRIMARY KEY, -- key; never null
    name TEXT
);
CREATE INDEX idx_a_name ON a(name);`

	stmts := splitStatements(script)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.NotContains(t, stmts[0], "--")
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE INDEX"))
}

func TestSplitStatements_CommentOnlyScript(t *testing.T) {
	assert.Empty(t, splitStatements("-- nothing but commentary;\n-- more;"))
}

func TestEmbeddedMigrationsSplitIntoStatements(t *testing.T) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		script, err := migrationFS.ReadFile(name)
		require.NoError(t, err)

		stmts := splitStatements(string(script))
		require.NotEmpty(t, stmts, name)
		for _, stmt := range stmts {
			assert.True(t, strings.HasPrefix(strings.ToUpper(stmt), "CREATE"),
				"%s: fragment is not a statement: %.60q", name, stmt)
		}
	}
}

func TestParseMigrationName(t *testing.T) {
	version, label, err := parseMigrationName("migrations/001_initial_schema.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, "initial_schema", label)

	_, _, err = parseMigrationName("migrations/noversion.sql")
	assert.Error(t, err)
}
