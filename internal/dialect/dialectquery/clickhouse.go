package dialectquery

import "fmt"

// Clickhouse stores versions in a KeeperMap table so deletes are immediately visible. When
// OnCluster is set the table is created on every node of ClusterMacro.
type Clickhouse struct {
	OnCluster    bool
	ClusterMacro string
}

var _ Querier = (*Clickhouse)(nil)

func (c *Clickhouse) CreateTable(tableName string) string {
	q := `CREATE TABLE IF NOT EXISTS %s%s (
		version_id Int64,
		is_applied UInt8,
		date Date default now(),
		tstamp DateTime64(9, 'UTC') default now64(9, 'UTC')
	)
	ENGINE = KeeperMap('/%s')
	PRIMARY KEY version_id`
	if c.OnCluster {
		macro := c.ClusterMacro
		if macro == "" {
			macro = "{cluster}"
		}
		return fmt.Sprintf(q, tableName, fmt.Sprintf(" ON CLUSTER '%s'", macro), tableName+"_repl")
	}
	return fmt.Sprintf(q, tableName, "", tableName)
}

func (c *Clickhouse) InsertVersion(tableName string) string {
	q := `INSERT INTO %s (version_id, is_applied) VALUES ($1, $2)`
	return fmt.Sprintf(q, tableName)
}

func (c *Clickhouse) DeleteVersion(tableName string) string {
	q := `ALTER TABLE %s DELETE WHERE version_id = $1 SETTINGS mutations_sync = 2`
	return fmt.Sprintf(q, tableName)
}

func (c *Clickhouse) GetMigrationByVersion(tableName string) string {
	q := `SELECT tstamp, is_applied FROM %s WHERE version_id = $1 ORDER BY tstamp DESC LIMIT 1`
	return fmt.Sprintf(q, tableName)
}

func (c *Clickhouse) ListMigrations(tableName string) string {
	q := `SELECT version_id, is_applied FROM %s ORDER BY tstamp DESC`
	return fmt.Sprintf(q, tableName)
}

func (c *Clickhouse) GetLatestVersion(tableName string) string {
	q := `SELECT max(version_id) FROM %s`
	return fmt.Sprintf(q, tableName)
}
