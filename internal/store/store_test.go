package store

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/flowlens/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func anyArgs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = pgxmock.AnyArg()
	}
	return out
}

func setupStore(t *testing.T) (*Store, pgxmock.PgxPoolIface, *observer.ObservedLogs) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	mockPool.ExpectPing().WillReturnError(nil)
	store, err := New(context.Background(), mockPool, zap.New(core))
	require.NoError(t, err)
	return store, mockPool, logs
}

func testRecords() *schemas.ArtifactRecords {
	return &schemas.ArtifactRecords{
		ArtifactID: "Orders",
		Adapters: []schemas.Adapter{{
			ArtifactID: "Orders", Name: "HTTPS_IN", Type: "HTTPS",
			Category: schemas.CategorySender, Direction: schemas.DirectionInbound,
			Address: "/orders", Properties: stdjson.RawMessage(`{"Name":"HTTPS_IN"}`),
		}},
		SecurityMechanisms: []schemas.SecurityMechanism{{
			ArtifactID: "Orders", Name: "HTTPS_IN_BasicAuthentication", Type: schemas.SecurityTypeBasicAuth,
			Direction: schemas.DirectionInbound, Enabled: true,
			Configuration: map[string]string{schemas.ConfigKeyAuthMethod: "BasicAuthentication"},
		}},
		ErrorHandling: schemas.ErrorHandlingConfig{ArtifactID: "Orders", LoggingEnabled: true},
		Persistence:   schemas.PersistenceConfig{ArtifactID: "Orders", JMSEnabled: true},
	}
}

var idHashColumns = []string{"id", "content_hash"}

// expectCreateAll registers the lookups and inserts for a fresh artifact.
func expectCreateAll(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(flexibleSQLMatcher(sqlSelectAdapter)).
		WithArgs("Orders", "HTTPS_IN").
		WillReturnRows(pgxmock.NewRows(idHashColumns))
	mock.ExpectExec(flexibleSQLMatcher(sqlInsertAdapter)).
		WithArgs(pgxmock.AnyArg(), "Orders", "HTTPS_IN", "HTTPS", "Sender", "Inbound", "/orders", "",
			stdjson.RawMessage(`{"Name":"HTTPS_IN"}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(flexibleSQLMatcher(sqlSelectSecurity)).
		WithArgs("Orders", "HTTPS_IN_BasicAuthentication").
		WillReturnRows(pgxmock.NewRows(idHashColumns))
	mock.ExpectExec(flexibleSQLMatcher(sqlInsertSecurity)).
		WithArgs(pgxmock.AnyArg(), "Orders", "HTTPS_IN_BasicAuthentication", "Basic Authentication", "Inbound", true,
			stdjson.RawMessage(`{"auth_method":"BasicAuthentication"}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(flexibleSQLMatcher(sqlSelectErrorHandling)).
		WithArgs("Orders").
		WillReturnRows(pgxmock.NewRows(idHashColumns))
	mock.ExpectExec(flexibleSQLMatcher(sqlInsertErrorHandling)).
		WithArgs(append([]any{pgxmock.AnyArg(), "Orders", false, true, false, false}, anyArgs(2)...)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(flexibleSQLMatcher(sqlSelectPersistence)).
		WithArgs("Orders").
		WillReturnRows(pgxmock.NewRows(idHashColumns))
	mock.ExpectExec(flexibleSQLMatcher(sqlInsertPersistence)).
		WithArgs(append([]any{pgxmock.AnyArg(), "Orders", true, false, false, false}, anyArgs(2)...)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	t.Run("should run every statement in order", func(t *testing.T) {
		store, mockPool, _ := setupStore(t)
		for _, stmt := range migrations {
			mockPool.ExpectExec(flexibleSQLMatcher(stmt)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		}
		require.NoError(t, store.Migrate(ctx))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should stop at the first failure", func(t *testing.T) {
		store, mockPool, _ := setupStore(t)
		execErr := errors.New("permission denied")
		mockPool.ExpectExec(flexibleSQLMatcher(migrations[0])).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mockPool.ExpectExec(flexibleSQLMatcher(migrations[1])).WillReturnError(execErr)

		err := store.Migrate(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, execErr)
		assert.Contains(t, err.Error(), "migration step 2")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestSaveArtifact(t *testing.T) {
	ctx := context.Background()

	t.Run("should create every record of a new artifact", func(t *testing.T) {
		store, mockPool, logs := setupStore(t)

		mockPool.ExpectBegin()
		expectCreateAll(mockPool)
		// Expect Commit AND the subsequent Rollback (which returns ErrTxClosed)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.SaveArtifact(ctx, testRecords()))
		assert.NoError(t, mockPool.ExpectationsWereMet())

		assert.Empty(t, logs.FilterLevelExact(zapcore.ErrorLevel).All(), "Expected no errors logged on successful commit")
		stored := logs.FilterMessage("Artifact stored").All()
		require.Len(t, stored, 1)
		assert.Equal(t, int64(4), stored[0].ContextMap()["created"])
	})

	t.Run("should leave unchanged records alone", func(t *testing.T) {
		store, mockPool, logs := setupStore(t)
		rec := testRecords()

		hashes := make([]string, 0, 4)
		for _, v := range []any{rec.Adapters[0], rec.SecurityMechanisms[0], rec.ErrorHandling, rec.Persistence} {
			h, err := contentHash(v)
			require.NoError(t, err)
			hashes = append(hashes, h)
		}

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectAdapter)).WithArgs("Orders", "HTTPS_IN").
			WillReturnRows(pgxmock.NewRows(idHashColumns).AddRow("a-1", hashes[0]))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectSecurity)).WithArgs("Orders", "HTTPS_IN_BasicAuthentication").
			WillReturnRows(pgxmock.NewRows(idHashColumns).AddRow("s-1", hashes[1]))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectErrorHandling)).WithArgs("Orders").
			WillReturnRows(pgxmock.NewRows(idHashColumns).AddRow("e-1", hashes[2]))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectPersistence)).WithArgs("Orders").
			WillReturnRows(pgxmock.NewRows(idHashColumns).AddRow("p-1", hashes[3]))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.SaveArtifact(ctx, rec))
		assert.NoError(t, mockPool.ExpectationsWereMet())

		stored := logs.FilterMessage("Artifact stored").All()
		require.Len(t, stored, 1)
		assert.Equal(t, int64(4), stored[0].ContextMap()["unchanged"])
	})

	t.Run("should update a changed record and append history", func(t *testing.T) {
		store, mockPool, _ := setupStore(t)
		rec := testRecords()
		rec.SecurityMechanisms = nil
		newHash, err := contentHash(rec.Adapters[0])
		require.NoError(t, err)
		ehHash, err := contentHash(rec.ErrorHandling)
		require.NoError(t, err)
		pHash, err := contentHash(rec.Persistence)
		require.NoError(t, err)

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectAdapter)).WithArgs("Orders", "HTTPS_IN").
			WillReturnRows(pgxmock.NewRows(idHashColumns).AddRow("a-1", "stale"))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpdateAdapter)).
			WithArgs("a-1", "Orders", "HTTPS_IN", "HTTPS", "Sender", "Inbound", "/orders", "",
				stdjson.RawMessage(`{"Name":"HTTPS_IN"}`), newHash).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertChange)).
			WithArgs(pgxmock.AnyArg(), "Orders", schemas.RecordAdapter, "HTTPS_IN", "stale", newHash).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectErrorHandling)).WithArgs("Orders").
			WillReturnRows(pgxmock.NewRows(idHashColumns).AddRow("e-1", ehHash))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectPersistence)).WithArgs("Orders").
			WillReturnRows(pgxmock.NewRows(idHashColumns).AddRow("p-1", pHash))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.SaveArtifact(ctx, rec))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should store only the first of duplicate names", func(t *testing.T) {
		store, mockPool, logs := setupStore(t)
		rec := testRecords()
		dup := rec.Adapters[0]
		dup.Address = "/other"
		rec.Adapters = append(rec.Adapters, dup)

		mockPool.ExpectBegin()
		expectCreateAll(mockPool)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.SaveArtifact(ctx, rec))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Equal(t, 1, logs.FilterMessage("Skipping adapter with duplicate name").Len())
	})

	t.Run("should handle transaction begin failure", func(t *testing.T) {
		store, mockPool, _ := setupStore(t)
		beginErr := errors.New("cannot begin tx")
		mockPool.ExpectBegin().WillReturnError(beginErr)

		err := store.SaveArtifact(ctx, testRecords())
		require.Error(t, err)
		assert.ErrorIs(t, err, beginErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback if an insert fails", func(t *testing.T) {
		store, mockPool, _ := setupStore(t)
		insertErr := errors.New("value too long")

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectAdapter)).WithArgs("Orders", "HTTPS_IN").
			WillReturnRows(pgxmock.NewRows(idHashColumns))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertAdapter)).WithArgs(anyArgs(10)...).
			WillReturnError(insertErr)
		mockPool.ExpectRollback()

		err := store.SaveArtifact(ctx, testRecords())
		require.Error(t, err)
		assert.ErrorIs(t, err, insertErr)
		assert.Contains(t, err.Error(), `failed to insert adapter "HTTPS_IN"`)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback if a lookup fails", func(t *testing.T) {
		store, mockPool, _ := setupStore(t)
		queryErr := errors.New("connection reset")

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectAdapter)).WithArgs("Orders", "HTTPS_IN").
			WillReturnError(queryErr)
		mockPool.ExpectRollback()

		err := store.SaveArtifact(ctx, testRecords())
		require.Error(t, err)
		assert.ErrorIs(t, err, queryErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should reject records without an artifact id", func(t *testing.T) {
		store, mockPool, _ := setupStore(t)
		assert.Error(t, store.SaveArtifact(ctx, nil))
		assert.Error(t, store.SaveArtifact(ctx, &schemas.ArtifactRecords{}))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("should retrieve changes successfully", func(t *testing.T) {
		store, mockPool, _ := setupStore(t)
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		changed := time.Date(2026, 3, 2, 9, 30, 0, 0, loc)

		rows := pgxmock.NewRows([]string{"id", "record_type", "record_name", "previous_hash", "current_hash", "changed_at"}).
			AddRow("c-1", schemas.RecordAdapter, "HTTPS_IN", "old", "new", changed)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectHistory)).WithArgs("Orders").WillReturnRows(rows)

		changes, err := store.History(ctx, "Orders")
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, "Orders", changes[0].ArtifactID)
		assert.Equal(t, schemas.RecordAdapter, changes[0].RecordType)
		assert.Equal(t, "new", changes[0].CurrentHash)
		assert.True(t, changes[0].ChangedAt.Equal(changed))
		assert.Equal(t, time.UTC, changes[0].ChangedAt.Location())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should propagate query errors", func(t *testing.T) {
		store, mockPool, _ := setupStore(t)
		queryErr := errors.New("relation does not exist")
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectHistory)).WithArgs("Orders").WillReturnError(queryErr)

		_, err := store.History(ctx, "Orders")
		assert.ErrorIs(t, err, queryErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestContentHash(t *testing.T) {
	a := schemas.SecurityMechanism{Name: "x", Configuration: map[string]string{"b": "1", "a": "2", "c": "3"}}
	first, err := contentHash(a)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := contentHash(a)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Len(t, first, 64)

	a.Enabled = true
	changed, err := contentHash(a)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}
