package main

import (
	"fmt"
	"net/url"
	"strings"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "github.com/vertica/vertica-sql-go"
	_ "github.com/ydb-platform/ydb-go-sdk/v3"

	"github.com/sergiosegrera/ts-goose/database"
)

// resolveDriver maps a dialect to the registered database/sql driver name and adjusts the
// connection string where the driver needs extra parameters.
func resolveDriver(driver string, dialect database.Dialect, dbstring, certfile string) (driverName, dsn string, err error) {
	switch dialect {
	case database.DialectPostgres, database.DialectRedshift:
		return "pgx", dbstring, nil
	case database.DialectMySQL, database.DialectTiDB:
		// The legacy mymysql driver uses its own DSN format.
		if strings.EqualFold(driver, "mymysql") {
			return "mymysql", dbstring, nil
		}
		dsn, err := normalizeMySQLDSN(dbstring, certfile)
		if err != nil {
			return "", "", fmt.Errorf("failed to normalize MySQL connection string: %w", err)
		}
		return "mysql", dsn, nil
	case database.DialectSQLite3:
		return "sqlite", dbstring, nil
	case database.DialectTurso:
		return "libsql", dbstring, nil
	case database.DialectMSSQL:
		return "sqlserver", dbstring, nil
	case database.DialectClickHouse:
		return "clickhouse", dbstring, nil
	case database.DialectVertica:
		return "vertica", dbstring, nil
	case database.DialectYdB:
		dsn, err := normalizeYdbDSN(dbstring)
		if err != nil {
			return "", "", err
		}
		return "ydb", dsn, nil
	case database.DialectSpanner:
		return "spanner", dbstring, nil
	case database.DialectCustom:
	}
	return "", "", fmt.Errorf("%q driver not supported", dialect)
}

// normalizeYdbDSN enables the scripting query mode and fake transactions the ydb driver needs to
// run DDL through database/sql. Values already present in the DSN are kept.
func normalizeYdbDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse ydb connection string: %w", err)
	}
	q := u.Query()
	for k, v := range map[string]string{
		"go_query_mode": "scripting",
		"go_fake_tx":    "scripting",
		"go_query_bind": "declare,numeric",
	} {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
