package schema

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrSnapshotNotFound is returned when the store holds no snapshot for a
// requested version.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotInfo summarises a stored snapshot.
type SnapshotInfo struct {
	ID        string          `json:"id"`
	Version   version.Version `json:"version"`
	Source    string          `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
	Tables    int             `json:"tables"`
}

// Store persists schema snapshots in SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates a store. A nil logger discards output.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens the SQLite database at path. Use ":memory:" for an in-memory
// database.
func (s *Store) Open(path string) error {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs all pending migrations.
func (s *Store) Migrate() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// MigrationVersion returns the current migration version.
func (s *Store) MigrationVersion() (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersion(s.db)
}

// Save stores snap, replacing any earlier snapshot for the same version.
// It returns the new snapshot ID.
func (s *Store) Save(ctx context.Context, snap *Snapshot) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE version = ?`, string(snap.Version)); err != nil {
		return "", fmt.Errorf("replace snapshot %s: %w", snap.Version, err)
	}

	id := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, version, source, created_at) VALUES (?, ?, ?, ?)`,
		id, string(snap.Version), snap.Source, time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("insert snapshot %s: %w", snap.Version, err)
	}

	for ti, t := range snap.Tables {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_tables (snapshot_id, position, name) VALUES (?, ?, ?)`,
			id, ti, t.Name,
		); err != nil {
			return "", fmt.Errorf("insert table %s: %w", t.Name, err)
		}

		for ci, c := range t.Columns {
			var def sql.NullString
			if c.Default != nil {
				def = sql.NullString{String: *c.Default, Valid: true}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO snapshot_columns
				(snapshot_id, table_name, position, name, type, nullable, default_value)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, id, t.Name, ci, c.Name, c.Type, c.Nullable, def); err != nil {
				return "", fmt.Errorf("insert column %s.%s: %w", t.Name, c.Name, err)
			}
		}

		for ii, idx := range t.Indexes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO snapshot_indexes
				(snapshot_id, table_name, position, name, columns, is_unique)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, t.Name, ii, idx.Name, strings.Join(idx.Columns, ","), idx.Unique); err != nil {
				return "", fmt.Errorf("insert index %s.%s: %w", t.Name, idx.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("snapshot saved", slog.String("id", id), slog.String("version", string(snap.Version)),
		slog.Int("tables", len(snap.Tables)))
	return id, nil
}

// Load returns the snapshot stored for v.
func (s *Store) Load(ctx context.Context, v version.Version) (*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var id string
	snap := &Snapshot{Version: v}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source FROM snapshots WHERE version = ?`, string(v),
	).Scan(&id, &snap.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, v)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", v, err)
	}

	if err := s.loadTables(ctx, id, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// LoadAll returns every stored snapshot.
func (s *Store) LoadAll(ctx context.Context) ([]*Snapshot, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Snapshot, 0, len(infos))
	for _, info := range infos {
		snap := &Snapshot{Version: info.Version, Source: info.Source}
		if err := s.loadTables(ctx, info.ID, snap); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// List summarises the stored snapshots, oldest first.
func (s *Store) List(ctx context.Context) ([]SnapshotInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.version, s.source, s.created_at,
		       (SELECT COUNT(*) FROM snapshot_tables t WHERE t.snapshot_id = s.id)
		FROM snapshots s
		ORDER BY s.created_at, s.version
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var v string
		if err := rows.Scan(&info.ID, &v, &info.Source, &info.CreatedAt, &info.Tables); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.Version = version.Version(v)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes the snapshot stored for v.
func (s *Store) Delete(ctx context.Context, v version.Version) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE version = ?`, string(v))
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", v, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, v)
	}
	return nil
}

func (s *Store) loadTables(ctx context.Context, id string, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM snapshot_tables WHERE snapshot_id = ? ORDER BY position`, id)
	if err != nil {
		return fmt.Errorf("query tables: %w", err)
	}
	byName := make(map[string]int)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan table: %w", err)
		}
		byName[name] = len(snap.Tables)
		snap.Tables = append(snap.Tables, TableDef{Name: name})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT table_name, name, type, nullable, default_value
		FROM snapshot_columns WHERE snapshot_id = ?
		ORDER BY table_name, position
	`, id)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	for rows.Next() {
		var table string
		var c Column
		var def sql.NullString
		if err := rows.Scan(&table, &c.Name, &c.Type, &c.Nullable, &def); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan column: %w", err)
		}
		if def.Valid {
			d := def.String
			c.Default = &d
		}
		if i, ok := byName[table]; ok {
			snap.Tables[i].Columns = append(snap.Tables[i].Columns, c)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT table_name, name, columns, is_unique
		FROM snapshot_indexes WHERE snapshot_id = ?
		ORDER BY table_name, position
	`, id)
	if err != nil {
		return fmt.Errorf("query indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var table, cols string
		var idx IndexDef
		if err := rows.Scan(&table, &idx.Name, &cols, &idx.Unique); err != nil {
			return fmt.Errorf("scan index: %w", err)
		}
		idx.Columns = strings.Split(cols, ",")
		if i, ok := byName[table]; ok {
			snap.Tables[i].Indexes = append(snap.Tables[i].Indexes, idx)
		}
	}
	return rows.Err()
}
