package database

import (
	"context"
	"fmt"
)

// Catalog lists the schemas and tables a job can select
type Catalog struct {
	db *DB
}

// Catalog returns the object catalog of the connection
func (d *DB) Catalog() *Catalog {
	return &Catalog{db: d}
}

// ListSchemas returns user schemas. Engines without schemas return nil.
func (c *Catalog) ListSchemas(ctx context.Context) ([]string, error) {
	var query string
	switch c.db.family {
	case FamilyPostgres:
		query = `SELECT schema_name FROM information_schema.schemata
		          WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		          AND schema_name NOT LIKE 'pg_temp_%'
		          ORDER BY schema_name`
	case FamilySQLServer:
		query = `SELECT DISTINCT TABLE_SCHEMA FROM INFORMATION_SCHEMA.TABLES ORDER BY TABLE_SCHEMA`
	default:
		return nil, nil
	}
	return c.queryNames(ctx, query)
}

// ListTables returns base tables. schema is ignored by SQLite and, for
// MySQL, names the database ("" means the connected one).
func (c *Catalog) ListTables(ctx context.Context, schema string) ([]string, error) {
	switch c.db.family {
	case FamilyPostgres:
		if schema == "" {
			schema = "public"
		}
		return c.queryNames(ctx, `SELECT table_name FROM information_schema.tables
		          WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		          ORDER BY table_name`, schema)
	case FamilyMySQL:
		if schema == "" {
			return c.queryNames(ctx, `SELECT table_name FROM information_schema.tables
			          WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			          ORDER BY table_name`)
		}
		return c.queryNames(ctx, `SELECT table_name FROM information_schema.tables
		          WHERE table_schema = ? AND table_type = 'BASE TABLE'
		          ORDER BY table_name`, schema)
	case FamilySQLite:
		return c.queryNames(ctx, `SELECT name FROM sqlite_master
		          WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		          ORDER BY name`)
	case FamilySQLServer:
		if schema == "" {
			schema = "dbo"
		}
		return c.queryNames(ctx, `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		          WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		          ORDER BY TABLE_NAME`, schema)
	}
	return nil, fmt.Errorf("table listing not supported for %q", c.db.family)
}

func (c *Catalog) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan object name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
