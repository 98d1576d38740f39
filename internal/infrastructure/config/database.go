package config

import (
	"fmt"
	"strings"
)

// Dialect names a supported database backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DatabaseURI is a parsed database.uri value.
type DatabaseURI struct {
	Dialect Dialect
	// Path is the sqlite file path; empty for postgres.
	Path string
	// DSN is what the driver is opened with.
	DSN string
}

// ParseDatabaseURI accepts sqlite://<file>.db and postgres:// or postgresql:// URLs.
func ParseDatabaseURI(uri string) (DatabaseURI, error) {
	switch {
	case strings.HasPrefix(uri, "sqlite://"):
		path := strings.TrimPrefix(uri, "sqlite://")
		if path == "" {
			return DatabaseURI{}, fmt.Errorf("sqlite uri %q has no path", uri)
		}
		if !strings.HasSuffix(path, ".db") {
			return DatabaseURI{}, fmt.Errorf("sqlite uri %q must end in .db", uri)
		}
		return DatabaseURI{Dialect: DialectSQLite, Path: path, DSN: path}, nil
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return DatabaseURI{Dialect: DialectPostgres, DSN: uri}, nil
	case uri == "":
		return DatabaseURI{}, fmt.Errorf("database uri is empty")
	default:
		return DatabaseURI{}, fmt.Errorf("unsupported database uri %q", uri)
	}
}
