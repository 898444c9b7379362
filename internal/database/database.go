package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"kasir/internal/models"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ItemsPerPage, page size of every paginated listing.
const ItemsPerPage = 6

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = models.ErrNotFound

//go:embed migrations
var migrationsFS embed.FS

// dialect carries the few statements that differ between drivers.
type dialect struct {
	like string
}

// SQLDatabase, the relational store behind the dashboard.
type SQLDatabase struct {
	db      *sql.DB
	driver  string
	dialect dialect
	log     zerolog.Logger
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string, log zerolog.Logger) (*SQLDatabase, error) {
	var d dialect
	switch driver {
	case DriverPostgres:
		d = dialect{like: "ILIKE"}
	case DriverSQLite:
		d = dialect{like: "LIKE"}
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &SQLDatabase{
		db:      db,
		driver:  driver,
		dialect: d,
		log:     log.With().Str("component", "database").Logger(),
	}, nil
}

// sqliteDSN switches on foreign keys and a busy timeout for every connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate applies the embedded schema migrations for the active driver.
func (s *SQLDatabase) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/"+s.driver)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	var target migratedb.Driver
	switch s.driver {
	case DriverPostgres:
		target, err = migratepg.WithInstance(s.db, &migratepg.Config{})
	case DriverSQLite:
		target, err = migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.driver, target)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	// m.Close would close the shared *sql.DB as well.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	s.log.Info().Str("driver", s.driver).Msg("migrations applied")
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLDatabase) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

// execTx runs fn inside a transaction, committing on success and rolling back
// on any error.
func (s *SQLDatabase) execTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pages converts a row count into a page count.
func pages(count int64) int {
	return int(math.Ceil(float64(count) / float64(ItemsPerPage)))
}

func offset(page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * ItemsPerPage
}

func likePattern(query string) string {
	return "%" + strings.TrimSpace(query) + "%"
}

// dbTime scans timestamps from either driver: postgres hands back time.Time,
// sqlite may hand back text.
type dbTime struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised time %q", s)
}
