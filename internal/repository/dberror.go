package repository

import (
	"errors"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// errorCode extracts the driver-specific code from a storage error: the
// MySQL/MariaDB error number, the PostgreSQL SQLSTATE, or the SQLite result
// code. It returns "" when err carries no code.
func errorCode(err error) string {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return strconv.Itoa(int(liteErr.Code))
	}
	return ""
}
