package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	dbInstance *sql.DB
	dbOnce     sync.Once
	dbErr      error
)

// GetDB returns a singleton in-memory DuckDB connection used for reports
func GetDB() (*sql.DB, error) {
	dbOnce.Do(func() {
		dbInstance, dbErr = initializeDuckDB()
	})
	return dbInstance, dbErr
}

// initializeDuckDB opens an in-memory DuckDB database.
// read_csv is built in, so no extension needs loading.
func initializeDuckDB() (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	// DuckDB works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to DuckDB: %w", err)
	}

	return db, nil
}

// QuoteLiteral quotes s as a SQL string literal.
// Table functions such as read_csv take their path as a literal, not a parameter.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
