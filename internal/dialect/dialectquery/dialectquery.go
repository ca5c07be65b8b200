// Package dialectquery holds the SQL each supported database uses to manage the version table.
package dialectquery

// Querier returns dialect specific SQL for the version table. Every method takes the fully
// qualified table name so one Querier can serve any table.
type Querier interface {
	// CreateTable returns the SQL query string to create the db version table.
	CreateTable(tableName string) string

	// InsertVersion returns the SQL query string to insert a new version into the db version
	// table. Parameters are version_id and is_applied, in that order.
	InsertVersion(tableName string) string

	// DeleteVersion returns the SQL query string to delete a version from the db version table.
	DeleteVersion(tableName string) string

	// GetMigrationByVersion returns the SQL query string to get a single migration by version.
	//
	// The query should return the timestamp and is_applied columns.
	GetMigrationByVersion(tableName string) string

	// ListMigrations returns the SQL query string to list all migrations in descending order by
	// id.
	//
	// The query should return the version_id and is_applied columns.
	ListMigrations(tableName string) string

	// GetLatestVersion returns the SQL query string to get the highest recorded version_id. The
	// result is NULL when the table is empty.
	GetLatestVersion(tableName string) string
}
