package dbutil

import (
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var mysqlLimitRe = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize converts a gendry-built query to postgres form: the MySQL
// "LIMIT offset, count" clause becomes "LIMIT ? OFFSET ?" with its args
// swapped to match, then every placeholder is rebound to $N.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	if loc := mysqlLimitRe.FindStringIndex(query); loc != nil {
		before := strings.Count(query[:loc[0]], "?")
		if before+1 < len(args) {
			args[before], args[before+1] = args[before+1], args[before]
			query = mysqlLimitRe.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

// IsConflict reports whether err is a postgres unique violation.
func IsConflict(err error) bool {
	if pgErr, ok := err.(*pq.Error); ok {
		return pgErr.Code == "23505"
	}
	return false
}
