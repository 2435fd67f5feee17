package builder

import (
	"sort"
	"strings"

	"dbdump/internal/job"
)

// Family is one registered engine family with its backup and restore drivers
type Family struct {
	Key     string
	Name    string
	Aliases []string
	Backup  func() Driver
	Restore func() Driver
}

var families = []Family{
	{
		Key:     "postgresql",
		Name:    "PostgreSQL",
		Aliases: []string{"postgres", "redshift"},
		Backup:  func() Driver { return pgBackup{} },
		Restore: func() Driver { return pgRestore{} },
	},
	{
		Key:     "mysql",
		Name:    "MySQL",
		Aliases: []string{"tidb"},
		Backup:  func() Driver { return mysqlBackup{dialect: dialectMySQL} },
		Restore: func() Driver { return mysqlRestore{dialect: dialectMySQL} },
	},
	{
		Key:     "mariadb",
		Name:    "MariaDB",
		Backup:  func() Driver { return mysqlBackup{dialect: dialectMariaDB} },
		Restore: func() Driver { return mysqlRestore{dialect: dialectMariaDB} },
	},
	{
		Key:     "sqlite",
		Name:    "SQLite",
		Aliases: []string{"sqlite3"},
		Backup:  func() Driver { return sqliteBackup{} },
		Restore: func() Driver { return sqliteRestore{} },
	},
	{
		Key:     "sqlserver",
		Name:    "SQL Server",
		Aliases: []string{"mssql"},
		Backup:  func() Driver { return mssqlBackup{} },
		Restore: func() Driver { return mssqlRestore{} },
	},
}

// Pair holds the backup and restore builders of one connection
type Pair struct {
	Backup  Builder
	Restore Builder
}

// Lookup returns the family registered for key or one of its aliases
func Lookup(key string) (Family, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, f := range families {
		if f.Key == key {
			return f, true
		}
		for _, a := range f.Aliases {
			if a == key {
				return f, true
			}
		}
	}
	return Family{}, false
}

// ForEngine creates the builder pair for key. Both builders share conn.
// Unknown engines get NotImplemented builders.
func ForEngine(key string, conn job.Connection, opts ...Option) Pair {
	f, ok := Lookup(key)
	if !ok {
		return Pair{
			Backup:  NewNotImplemented(key, ModeBackup),
			Restore: NewNotImplemented(key, ModeRestore),
		}
	}
	if conn.Engine == "" {
		conn.Engine = f.Key
	}
	return Pair{
		Backup:  NewEngine(f.Key, f.Backup(), conn, opts...),
		Restore: NewEngine(f.Key, f.Restore(), conn, opts...),
	}
}

// Engines returns the canonical keys of the supported engines
func Engines() []string {
	keys := make([]string, 0, len(families))
	for _, f := range families {
		keys = append(keys, f.Key)
	}
	sort.Strings(keys)
	return keys
}
