package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/leapstack-labs/schemadoc/internal/version"
)

const (
	tablesQuery = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	columnsQuery = `
		SELECT table_name, column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`

	indexesQuery = `
		SELECT t.relname, i.relname, ix.indisprimary, ix.indisunique,
		       array_to_string(ARRAY(
		           SELECT a.attname
		           FROM unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		           JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		           ORDER BY k.ord), ',')
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1
		ORDER BY t.relname, i.relname`
)

// PrimaryIndexName is the name recorded for primary key indexes, whatever
// the database calls them.
const PrimaryIndexName = "PRIMARY"

// Introspector captures a Snapshot from a live PostgreSQL database.
type Introspector struct {
	db     *sql.DB
	schema string
	logger *slog.Logger
}

// OpenIntrospector connects to dsn through the pgx driver.
func OpenIntrospector(ctx context.Context, dsn, schemaName string, logger *slog.Logger) (*Introspector, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewIntrospector(db, schemaName, logger), nil
}

// NewIntrospector wraps an open connection. schemaName defaults to "public".
func NewIntrospector(db *sql.DB, schemaName string, logger *slog.Logger) *Introspector {
	if schemaName == "" {
		schemaName = "public"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Introspector{db: db, schema: schemaName, logger: logger}
}

// Close closes the underlying connection.
func (in *Introspector) Close() error { return in.db.Close() }

// Snapshot reads the current schema and tags it with release v.
func (in *Introspector) Snapshot(ctx context.Context, v version.Version) (*Snapshot, error) {
	snap := &Snapshot{Version: v, Source: "postgres:" + in.schema}
	byName := make(map[string]int)

	rows, err := in.db.QueryContext(ctx, tablesQuery, in.schema)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan table: %w", err)
		}
		byName[name] = len(snap.Tables)
		snap.Tables = append(snap.Tables, TableDef{Name: name})
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = in.db.QueryContext(ctx, columnsQuery, in.schema)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	for rows.Next() {
		var table, nullable string
		var def sql.NullString
		var c Column
		if err := rows.Scan(&table, &c.Name, &c.Type, &nullable, &def); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Nullable = strings.EqualFold(nullable, "YES")
		if def.Valid {
			d := def.String
			c.Default = &d
		}
		i, ok := byName[table]
		if !ok {
			// Views and foreign tables also appear in information_schema.columns.
			continue
		}
		snap.Tables[i].Columns = append(snap.Tables[i].Columns, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = in.db.QueryContext(ctx, indexesQuery, in.schema)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	for rows.Next() {
		var table, cols string
		var primary bool
		var idx IndexDef
		if err := rows.Scan(&table, &idx.Name, &primary, &idx.Unique, &cols); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan index: %w", err)
		}
		if primary {
			idx.Name = PrimaryIndexName
		}
		if cols != "" {
			idx.Columns = strings.Split(cols, ",")
		}
		if i, ok := byName[table]; ok {
			snap.Tables[i].Indexes = append(snap.Tables[i].Indexes, idx)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	in.logger.Info("schema introspected",
		slog.String("schema", in.schema),
		slog.String("version", string(v)),
		slog.Int("tables", len(snap.Tables)))
	return snap, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}
