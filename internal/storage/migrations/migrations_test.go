package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts, err := splitStatements(`
-- header comment
CREATE TABLE a (x String);

-- another
CREATE TABLE b (y String DEFAULT 'it''s');
`)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x String)", stmts[0])
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b"))
}

func TestSplitStatements_RejectsSemicolonInString(t *testing.T) {
	_, err := splitStatements("INSERT INTO t VALUES ('a;b');")
	assert.ErrorIs(t, err, errSemicolonInString)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://u:p@host:9000/gate")
	require.NoError(t, err)
	assert.Equal(t, "gate", db)

	_, err = databaseFromDSN("clickhouse://host:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := readSQL(PostgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Contains(t, pg[0].body, "eval_runs")

	ch, err := readSQL(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)

	stmts, err := splitStatements(ch[0].body)
	require.NoError(t, err)
	assert.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "eval_trades")
}
