package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
)

// LoadSnapshots reads every snapshot from path, a YAML snapshot file or a
// SQLite snapshot store.
func LoadSnapshots(ctx context.Context, path string, logger *slog.Logger) ([]*schema.Snapshot, error) {
	if !IsStorePath(path) {
		snaps, err := schema.LoadSnapshotFile(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded snapshot file", "path", path, "snapshots", len(snaps))
		return snaps, nil
	}

	store, err := openStore(path, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	snaps, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots from %s: %w", path, err)
	}
	logger.Debug("loaded snapshot store", "path", path, "snapshots", len(snaps))
	return snaps, nil
}

func openStore(path string, logger *slog.Logger) (*schema.Store, error) {
	store := schema.NewStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
	}
	return store, nil
}

// CaptureOptions configures Capture.
type CaptureOptions struct {
	// DSN is the PostgreSQL connection string.
	DSN string
	// Schema is the PostgreSQL schema to read (optional, "public").
	Schema string
	// Version tags the captured snapshot.
	Version version.Version
	// StorePath is the SQLite store the snapshot is saved to.
	StorePath string
	// Order, when set, rejects versions outside it before connecting.
	Order *version.Order
	// Logger is the structured logger (optional).
	Logger *slog.Logger
}

// CaptureResult describes a saved snapshot.
type CaptureResult struct {
	ID       string          `json:"id"`
	Version  version.Version `json:"version"`
	Source   string          `json:"source"`
	Tables   int             `json:"tables"`
	Elements int             `json:"elements"`
}

// Capture introspects a live PostgreSQL schema and saves it to a snapshot
// store.
func Capture(ctx context.Context, opts CaptureOptions) (*CaptureResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("introspect.dsn is required")
	}
	if opts.Version == "" {
		return nil, fmt.Errorf("a release version is required")
	}
	if !IsStorePath(opts.StorePath) {
		return nil, fmt.Errorf("snapshots can only be saved to a SQLite store (.db, .sqlite, .sqlite3), got %q", opts.StorePath)
	}
	if opts.Order != nil && !opts.Order.Contains(opts.Version) {
		return nil, &version.UnknownVersionError{Version: opts.Version}
	}

	in, err := schema.OpenIntrospector(ctx, opts.DSN, opts.Schema, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()

	snap, err := in.Snapshot(ctx, opts.Version)
	if err != nil {
		return nil, err
	}
	return SaveSnapshot(ctx, opts.StorePath, snap, logger)
}

// SaveSnapshot writes snap to the store at path, replacing any snapshot of
// the same version.
func SaveSnapshot(ctx context.Context, path string, snap *schema.Snapshot, logger *slog.Logger) (*CaptureResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store, err := openStore(path, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	id, err := store.Save(ctx, snap)
	if err != nil {
		return nil, err
	}
	logger.Info("snapshot saved", "id", id, "version", string(snap.Version), "tables", len(snap.Tables))
	return &CaptureResult{
		ID:       id,
		Version:  snap.Version,
		Source:   snap.Source,
		Tables:   len(snap.Tables),
		Elements: len(snap.Definitions()),
	}, nil
}
