package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntrospector_Snapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("bugzilla").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("bugs").
			AddRow("profiles"))

	mock.ExpectQuery(`FROM information_schema.columns`).
		WithArgs("bugzilla").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "is_nullable", "column_default"}).
			AddRow("bugs", "bug_id", "integer", "NO", "nextval('bugs_bug_id_seq'::regclass)").
			AddRow("bugs", "short_desc", "character varying", "YES", nil).
			AddRow("bug_view", "bug_id", "integer", "NO", nil).
			AddRow("profiles", "userid", "integer", "NO", nil))

	mock.ExpectQuery(`FROM pg_index ix`).
		WithArgs("bugzilla").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "relname", "indisprimary", "indisunique", "columns"}).
			AddRow("bugs", "bugs_pkey", true, true, "bug_id").
			AddRow("bugs", "bugs_short_desc_idx", false, false, "short_desc,bug_id").
			AddRow("profiles", "profiles_pkey", true, true, "userid"))

	in := NewIntrospector(db, "bugzilla", nil)
	snap, err := in.Snapshot(context.Background(), "5.2")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "postgres:bugzilla", snap.Source)
	require.Len(t, snap.Tables, 2)

	bugs := snap.Tables[0]
	assert.Equal(t, "bugs", bugs.Name)
	require.Len(t, bugs.Columns, 2, "view columns are skipped")
	assert.False(t, bugs.Columns[0].Nullable)
	require.NotNil(t, bugs.Columns[0].Default)
	assert.True(t, bugs.Columns[1].Nullable)
	assert.Nil(t, bugs.Columns[1].Default)

	require.Len(t, bugs.Indexes, 2)
	assert.Equal(t, PrimaryIndexName, bugs.Indexes[0].Name)
	assert.Equal(t, []string{"short_desc", "bug_id"}, bugs.Indexes[1].Columns)

	defs := snap.Definitions()
	assert.Equal(t, "UNIQUE (userid)", defs[IndexElem("profiles", "PRIMARY")])
}

func TestIntrospector_DefaultSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("public").
		WillReturnError(errors.New("connection reset"))

	_, err = NewIntrospector(db, "", nil).Snapshot(context.Background(), "5.2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query tables")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntrospector_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("bugs"))
	mock.ExpectQuery(`FROM information_schema.columns`).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("bugs"))

	_, err = NewIntrospector(db, "public", nil).Snapshot(context.Background(), "5.2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan column")
}
