package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// pragmas are applied to every pooled connection through the DSN, so
// foreign keys stay enforced no matter which connection serves a query.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// Open opens a SQLite connection pool and configures pragmas.
func Open(path string) (*sql.DB, error) {
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	// Writers take the lock at BEGIN so status re-checks inside a
	// transaction cannot race another writer.
	params = append(params, "_txlock=immediate")
	dsn := path + "?" + strings.Join(params, "&")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	se, ok := constraintError(err)
	if !ok {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return strings.Contains(se.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	se, ok := constraintError(err)
	if !ok {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(se.Error(), "FOREIGN KEY constraint failed")
}

// constraintError unwraps a driver error whose primary result code is SQLITE_CONSTRAINT.
func constraintError(err error) (*sqlite.Error, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return nil, false
	}
	return se, se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
