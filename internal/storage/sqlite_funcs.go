package storage

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// sqliteLower is a Unicode aware replacement for SQLite's LOWER, which
// only folds ASCII. Search lowers the needle with strings.ToLower, so the
// column side must fold the same way.
const sqliteLower = "dtmoney_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLower, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

// lowerFunc names the case folding SQL function for the dialect. Postgres
// LOWER already folds Unicode in UTF-8 databases.
func (d Dialect) lowerFunc() string {
	if d == DialectSQLite {
		return sqliteLower
	}
	return "LOWER"
}
