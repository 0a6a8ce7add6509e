package venue

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps venues in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps pragmas (and :memory: databases) consistent.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, logger: log.Component("venue")}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// MigrateUp runs all pending migrations. Already being at the latest
// version is not an error.
func (s *SQLiteStore) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version. 0 means no migration
// has been applied.
func (s *SQLiteStore) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *SQLiteStore) newMigrate() (*migrate.Migrate, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{s.logger}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf("[migrate] "+format, v...))
}

func (l migrateLogger) Verbose() bool { return false }

func (s *SQLiteStore) exists(ctx context.Context, venueID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM venues WHERE id = ?`, venueID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(venueID)
	}
	return err
}

// Beacons implements positioning.BeaconSource.
func (s *SQLiteStore) Beacons(ctx context.Context, venueID string) ([]positioning.Beacon, error) {
	if err := s.exists(ctx, venueID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uuid, major, minor, x, y, floor
		FROM beacons WHERE venue_id = ? ORDER BY id`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []positioning.Beacon
	for rows.Next() {
		var b positioning.Beacon
		if err := rows.Scan(&b.ID, &b.Identity.UUID, &b.Identity.Major, &b.Identity.Minor,
			&b.Position.X, &b.Position.Y, &b.Position.Z); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Venue loads a venue with its beacons and targets.
func (s *SQLiteStore) Venue(ctx context.Context, id string) (*Venue, error) {
	v := &Venue{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM venues WHERE id = ?`, id).Scan(&v.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}

	if v.Beacons, err = s.Beacons(ctx, id); err != nil {
		return nil, err
	}
	if v.Targets, err = s.Targets(ctx, id); err != nil {
		return nil, err
	}
	return v, nil
}

// Venues returns all venue ids, sorted.
func (s *SQLiteStore) Venues(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM venues ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Targets returns the venue's targets sorted by id.
func (s *SQLiteStore) Targets(ctx context.Context, venueID string) ([]Target, error) {
	if err := s.exists(ctx, venueID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, x, y, floor
		FROM targets WHERE venue_id = ? ORDER BY id`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Position.X, &t.Position.Y, &t.Position.Z); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Target returns one target.
func (s *SQLiteStore) Target(ctx context.Context, venueID, targetID string) (Target, error) {
	t := Target{ID: targetID}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, category, x, y, floor
		FROM targets WHERE venue_id = ? AND id = ?`, venueID, targetID).
		Scan(&t.Name, &t.Category, &t.Position.X, &t.Position.Y, &t.Position.Z)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.exists(ctx, venueID); err != nil {
			return Target{}, err
		}
		return Target{}, fmt.Errorf("%w: %s/%s", ErrTargetNotFound, venueID, targetID)
	}
	if err != nil {
		return Target{}, err
	}
	return t, nil
}

// Save replaces a venue and all of its beacons and targets in one
// transaction.
func (s *SQLiteStore) Save(ctx context.Context, v *Venue) error {
	assignIDs(v)
	if err := v.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO venues (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = CURRENT_TIMESTAMP`,
		v.ID, v.Name); err != nil {
		return fmt.Errorf("failed to save venue: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM beacons WHERE venue_id = ?`, v.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM targets WHERE venue_id = ?`, v.ID); err != nil {
		return err
	}

	for _, b := range v.Beacons {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO beacons (venue_id, id, uuid, major, minor, x, y, floor)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, b.ID, b.Identity.UUID, b.Identity.Major, b.Identity.Minor,
			b.Position.X, b.Position.Y, b.Position.Z); err != nil {
			return fmt.Errorf("failed to save beacon %s: %w", b.ID, err)
		}
	}
	for _, t := range v.Targets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO targets (venue_id, id, name, category, x, y, floor)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			v.ID, t.ID, t.Name, t.Category, t.Position.X, t.Position.Y, t.Position.Z); err != nil {
			return fmt.Errorf("failed to save target %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("venue saved", "venue", v.ID, "beacons", len(v.Beacons), "targets", len(v.Targets))
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
