package storage

import (
	"strconv"
	"strings"
)

// dialect captures the SQL differences between the supported databases.
// Queries are written with ? placeholders and rebound per dialect.
type dialect struct {
	name          string // database/sql driver name
	goose         string // goose dialect name
	migrationsDir string
	numbered      bool // $1, $2 placeholders instead of ?
}

var (
	sqliteDialect = dialect{
		name:          "sqlite",
		goose:         "sqlite3",
		migrationsDir: "migrations/sqlite",
	}
	postgresDialect = dialect{
		name:          "pgx",
		goose:         "postgres",
		migrationsDir: "migrations/postgres",
		numbered:      true,
	}
)

// rebind converts ? placeholders to the dialect's form. Question marks
// inside single-quoted literals are left alone.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
