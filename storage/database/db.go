package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/homeroom/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

func postgresURL(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   Postgres,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// sqliteDSN turns on foreign keys and waits on locks instead of failing.
func sqliteDSN(path string) string {
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

// Open connects to the configured database. In-memory SQLite databases are
// pinned to a single connection so every query sees the same data.
func Open(conf *core.Config) (*sqlx.DB, error) {
	switch conf.Database.Engine {
	case Postgres:
		db, err := sqlx.Open(Postgres, postgresURL(conf.Database.Name, false, conf))
		return db, errors.Wrap(err, "opening postgres")
	case SQLite:
		db, err := sqlx.Open(SQLite, sqliteDSN(conf.Database.Path))
		if err != nil {
			return nil, errors.Wrap(err, "opening sqlite")
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	}
	return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sql.DB, query, name string) (bool, error) {
	var found bool
	err := db.QueryRow(query, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createAppUser(db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}
	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sql.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the postgres app user and database. SQLite files
// are created on open, so it is a no-op for them.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != Postgres {
		return nil
	}

	// connect as admin
	adminDB, err := sql.Open(Postgres, postgresURL("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = adminDB.Close() }()

	if err = ping(adminDB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(adminDB, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}

	// create DB as app user
	db, err := sql.Open(Postgres, postgresURL("postgres", false, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	return errors.Wrap(createDB(db, conf), "creating database")
}

var gooseMu sync.Mutex

// RunMigrations runs a goose command ("up", "down", "status", "up-to 3"...)
// against the embedded migrations.
func RunMigrations(ctx context.Context, db *sql.DB, dialect, command string, args ...string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	return goose.RunContext(ctx, command, db, migrationsDir, args...)
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	return errors.Wrap(RunMigrations(ctx, db.DB, db.DriverName(), "up"), "migrating database")
}
