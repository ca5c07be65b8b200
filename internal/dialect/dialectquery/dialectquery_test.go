package dialectquery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueriersUseTableName(t *testing.T) {
	t.Parallel()

	queriers := map[string]Querier{
		"clickhouse": &Clickhouse{},
		"mssql":      &Sqlserver{},
		"mysql":      &Mysql{},
		"postgres":   &Postgres{},
		"redshift":   &Redshift{},
		"spanner":    &Spanner{},
		"sqlite3":    &Sqlite3{},
		"tidb":       &Tidb{},
		"turso":      &Turso{},
		"vertica":    &Vertica{},
		"ydb":        &Ydb{},
	}
	const table = "custom_schema.versions"
	for name, q := range queriers {
		t.Run(name, func(t *testing.T) {
			for _, query := range []string{
				q.CreateTable(table),
				q.InsertVersion(table),
				q.DeleteVersion(table),
				q.GetMigrationByVersion(table),
				q.ListMigrations(table),
				q.GetLatestVersion(table),
			} {
				require.Contains(t, query, table)
				require.NotContains(t, query, "%!")
			}
			require.True(t, strings.HasPrefix(strings.TrimSpace(q.CreateTable(table)), "CREATE TABLE"))
		})
	}
}

func TestClickhouseCreateTable(t *testing.T) {
	t.Parallel()

	q := (&Clickhouse{}).CreateTable("schema_migrations")
	require.NotContains(t, q, "ON CLUSTER")
	require.Contains(t, q, "KeeperMap('/schema_migrations')")

	q = (&Clickhouse{OnCluster: true}).CreateTable("schema_migrations")
	require.Contains(t, q, "ON CLUSTER '{cluster}'")
	require.Contains(t, q, "KeeperMap('/schema_migrations_repl')")

	q = (&Clickhouse{OnCluster: true, ClusterMacro: "dev-cluster"}).CreateTable("schema_migrations")
	require.Contains(t, q, "ON CLUSTER 'dev-cluster'")
}
