// Package database opens the live connection used by SQL-mode steps and
// lists the objects a job can include or exclude.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"dbdump/internal/job"
	"dbdump/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Engine families with a Go driver
const (
	FamilyPostgres  = "postgres"
	FamilyMySQL     = "mysql"
	FamilySQLite    = "sqlite"
	FamilySQLServer = "sqlserver"
)

// Execer runs a statement on a live connection. *sql.DB satisfies it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PingAttempts is the number of connection attempts made by Open
var PingAttempts = 3

// Family maps an engine key to its driver family, or "" when the engine
// has no Go driver.
func Family(engine string) string {
	switch engine {
	case "postgresql", "postgres", "redshift":
		return FamilyPostgres
	case "mysql", "mariadb", "tidb":
		return FamilyMySQL
	case "sqlite", "sqlite3":
		return FamilySQLite
	case "sqlserver", "mssql":
		return FamilySQLServer
	}
	return ""
}

// DB is an open connection of one engine family
type DB struct {
	*sql.DB
	family    string
	log       logger.Logger
	closeOnce sync.Once
}

// Open connects to the database described by conn and pings it,
// retrying with exponential backoff.
func Open(ctx context.Context, conn job.Connection, log logger.Logger) (*DB, error) {
	driver, dsn, err := DSN(conn)
	if err != nil {
		return nil, err
	}

	log.Debug("Opening database connection", "engine", conn.Engine, "driver", driver, "dsn", Redact(dsn))

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	db := NewFromDB(sqlDB, Family(conn.Engine), log)
	if err := db.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("Connected to database", "engine", conn.Engine, "database", conn.DatabaseName())
	return db, nil
}

// NewFromDB wraps an already opened *sql.DB
func NewFromDB(db *sql.DB, family string, log logger.Logger) *DB {
	return &DB{DB: db, family: family, log: log}
}

// Family returns the driver family of the connection
func (d *DB) Family() string {
	return d.family
}

// Ping checks the connection, retrying up to PingAttempts times
func (d *DB) Ping(ctx context.Context) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond
	expBackoff.MaxInterval = 2 * time.Second

	retries := PingAttempts - 1
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(retries)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := d.DB.PingContext(ctx)
		if err != nil {
			d.log.Debug("Ping failed", "attempt", attempt, "error", err)
		}
		return err
	}, b)
	if err != nil {
		return fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
	}
	return nil
}

// Close closes the connection. Safe to call multiple times.
func (d *DB) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.DB.Close()
	})
	return err
}

// DSN returns the driver name and data source name for conn
func DSN(conn job.Connection) (string, string, error) {
	host, port := conn.Endpoint()

	switch Family(conn.Engine) {
	case FamilyPostgres:
		return "pgx", postgresDSN(conn, host, port), nil

	case FamilyMySQL:
		cfg := mysql.NewConfig()
		cfg.User = conn.User
		cfg.Passwd = conn.Password
		cfg.DBName = conn.Database
		cfg.MultiStatements = true
		if conn.UsesSocket() {
			cfg.Net = "unix"
			cfg.Addr = conn.SocketPath
		} else {
			cfg.Net = "tcp"
			cfg.Addr = net.JoinHostPort(host, portOr(port, 3306))
		}
		if conn.SSL {
			cfg.TLSConfig = "true"
			if !conn.SSLRejectUnauthorized {
				cfg.TLSConfig = "skip-verify"
			}
		}
		return "mysql", cfg.FormatDSN(), nil

	case FamilySQLite:
		path := conn.DatabaseName()
		if path == "" {
			return "", "", fmt.Errorf("sqlite connection has no database file")
		}
		return "sqlite", path, nil

	case FamilySQLServer:
		u := &url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(conn.User, conn.Password),
			Host:   net.JoinHostPort(host, portOr(port, 1433)),
		}
		q := url.Values{}
		if conn.Database != "" {
			q.Set("database", conn.Database)
		}
		if conn.SSL {
			q.Set("encrypt", "true")
			q.Set("TrustServerCertificate", strconv.FormatBool(!conn.SSLRejectUnauthorized))
		} else {
			q.Set("encrypt", "disable")
		}
		u.RawQuery = q.Encode()
		return "sqlserver", u.String(), nil
	}

	return "", "", fmt.Errorf("no database driver for engine %q", conn.Engine)
}

func postgresDSN(conn job.Connection, host string, port int) string {
	q := url.Values{}
	sslmode := "prefer"
	if conn.SSL {
		sslmode = "require"
		if conn.SSLRejectUnauthorized && conn.SSLCAFile != "" {
			sslmode = "verify-full"
		}
	}
	q.Set("sslmode", sslmode)
	if conn.SSLCAFile != "" {
		q.Set("sslrootcert", conn.SSLCAFile)
	}
	if conn.SSLCertFile != "" {
		q.Set("sslcert", conn.SSLCertFile)
	}
	if conn.SSLKeyFile != "" {
		q.Set("sslkey", conn.SSLKeyFile)
	}

	u := &url.URL{
		Scheme: "postgres",
		Path:   "/" + conn.Database,
	}
	if conn.Password != "" {
		u.User = url.UserPassword(conn.User, conn.Password)
	} else if conn.User != "" {
		u.User = url.User(conn.User)
	}

	if conn.UsesSocket() {
		// pgx reads a socket directory from the host parameter
		q.Set("host", conn.SocketPath)
		q.Set("sslmode", "disable")
	} else {
		u.Host = net.JoinHostPort(host, portOr(port, 5432))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func portOr(port, def int) string {
	if port == 0 {
		port = def
	}
	return strconv.Itoa(port)
}

// Redact masks the password of a URL or MySQL DSN for logging
func Redact(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}
	if cfg, err := mysql.ParseDSN(dsn); err == nil && cfg.Passwd != "" {
		cfg.Passwd = "xxxxx"
		return cfg.FormatDSN()
	}
	return dsn
}
