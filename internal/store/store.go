package store

import (
	"context"
	"encoding/hex"
	stdjson "encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// jsonCodec sorts map keys, so content hashes are stable across runs.
var jsonCodec = json.ConfigCompatibleWithStandardLibrary

// Store provides a PostgreSQL implementation of schemas.Store.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	s.log.Info("Database schema is up to date", zap.Int("statements", len(migrations)))
	return nil
}

// saveStats counts the outcome of one SaveArtifact call.
type saveStats struct {
	created, updated, unchanged int
}

// record is one canonical row to find-or-create. values follow the column
// order of insertSQL after the id, and the last value is the content hash.
type record struct {
	kind      string
	name      string
	selectSQL string
	key       []any
	insertSQL string
	updateSQL string
	values    []any
	hash      string
}

// SaveArtifact persists all records of one artifact in a single transaction.
// A record that already exists is updated only when its content hash
// changed, and every such update appends a change_history row.
func (s *Store) SaveArtifact(ctx context.Context, rec *schemas.ArtifactRecords) error {
	if rec == nil || rec.ArtifactID == "" {
		return errors.New("artifact records without an artifact id")
	}

	rows, err := s.records(rec)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	var stats saveStats
	for _, r := range rows {
		if err := s.sync(ctx, tx, rec.ArtifactID, r, &stats); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Info("Artifact stored",
		zap.String("artifact_id", rec.ArtifactID),
		zap.Int("created", stats.created),
		zap.Int("updated", stats.updated),
		zap.Int("unchanged", stats.unchanged))
	return nil
}

// sync finds a record by its natural key and creates or updates it.
func (s *Store) sync(ctx context.Context, tx pgx.Tx, artifactID string, r record, stats *saveStats) error {
	var id, previous string
	err := tx.QueryRow(ctx, r.selectSQL, r.key...).Scan(&id, &previous)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		args := append([]any{uuid.NewString()}, r.values...)
		if _, err := tx.Exec(ctx, r.insertSQL, args...); err != nil {
			return fmt.Errorf("failed to insert %s %q: %w", r.kind, r.name, err)
		}
		stats.created++
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up %s %q: %w", r.kind, r.name, err)
	}

	if previous == r.hash {
		stats.unchanged++
		return nil
	}

	args := append([]any{id}, r.values...)
	if _, err := tx.Exec(ctx, r.updateSQL, args...); err != nil {
		return fmt.Errorf("failed to update %s %q: %w", r.kind, r.name, err)
	}
	if _, err := tx.Exec(ctx, sqlInsertChange, uuid.NewString(), artifactID, r.kind, r.name, previous, r.hash); err != nil {
		return fmt.Errorf("failed to record change for %s %q: %w", r.kind, r.name, err)
	}
	s.log.Debug("Record changed",
		zap.String("artifact_id", artifactID),
		zap.String("record_type", r.kind),
		zap.String("record_name", r.name))
	stats.updated++
	return nil
}

// records flattens an artifact into rows. Adapters and security mechanisms
// sharing a name keep the first occurrence.
func (s *Store) records(rec *schemas.ArtifactRecords) ([]record, error) {
	var out []record

	seen := make(map[string]bool)
	for _, a := range rec.Adapters {
		if seen[a.Name] {
			s.log.Debug("Skipping adapter with duplicate name", zap.String("adapter", a.Name))
			continue
		}
		seen[a.Name] = true
		hash, err := contentHash(a)
		if err != nil {
			return nil, err
		}
		out = append(out, record{
			kind:      schemas.RecordAdapter,
			name:      a.Name,
			selectSQL: sqlSelectAdapter,
			key:       []any{rec.ArtifactID, a.Name},
			insertSQL: sqlInsertAdapter,
			updateSQL: sqlUpdateAdapter,
			values: []any{rec.ArtifactID, a.Name, a.Type, string(a.Category), string(a.Direction),
				a.Address, a.CmdVariantURI, rawJSON(a.Properties), hash},
			hash: hash,
		})
	}

	seen = make(map[string]bool)
	for _, m := range rec.SecurityMechanisms {
		if seen[m.Name] {
			s.log.Debug("Skipping security mechanism with duplicate name", zap.String("mechanism", m.Name))
			continue
		}
		seen[m.Name] = true
		hash, err := contentHash(m)
		if err != nil {
			return nil, err
		}
		config, err := jsonCodec.Marshal(m.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to encode configuration of %q: %w", m.Name, err)
		}
		out = append(out, record{
			kind:      schemas.RecordSecurity,
			name:      m.Name,
			selectSQL: sqlSelectSecurity,
			key:       []any{rec.ArtifactID, m.Name},
			insertSQL: sqlInsertSecurity,
			updateSQL: sqlUpdateSecurity,
			values: []any{rec.ArtifactID, m.Name, string(m.Type), string(m.Direction), m.Enabled,
				rawJSON(config), hash},
			hash: hash,
		})
	}

	eh := rec.ErrorHandling
	ehHash, err := contentHash(eh)
	if err != nil {
		return nil, err
	}
	ehDetails, err := jsonCodec.Marshal(eh.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode error handling details: %w", err)
	}
	out = append(out, record{
		kind:      schemas.RecordErrorHandling,
		name:      rec.ArtifactID,
		selectSQL: sqlSelectErrorHandling,
		key:       []any{rec.ArtifactID},
		insertSQL: sqlInsertErrorHandling,
		updateSQL: sqlUpdateErrorHandling,
		values: []any{rec.ArtifactID, eh.DetectionEnabled, eh.LoggingEnabled, eh.ClassificationEnabled,
			eh.ReportingEnabled, rawJSON(ehDetails), ehHash},
		hash: ehHash,
	})

	p := rec.Persistence
	pHash, err := contentHash(p)
	if err != nil {
		return nil, err
	}
	pDetails, err := jsonCodec.Marshal(p.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode persistence details: %w", err)
	}
	out = append(out, record{
		kind:      schemas.RecordPersistence,
		name:      rec.ArtifactID,
		selectSQL: sqlSelectPersistence,
		key:       []any{rec.ArtifactID},
		insertSQL: sqlInsertPersistence,
		updateSQL: sqlUpdatePersistence,
		values: []any{rec.ArtifactID, p.JMSEnabled, p.DataStoreEnabled, p.VariablesEnabled,
			p.MessagePersistenceEnabled, rawJSON(pDetails), pHash},
		hash: pHash,
	})
	return out, nil
}

// History returns the change history of an artifact, oldest first.
func (s *Store) History(ctx context.Context, artifactID string) ([]schemas.ChangeRecord, error) {
	rows, err := s.pool.Query(ctx, sqlSelectHistory, artifactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query change history: %w", err)
	}
	defer rows.Close()

	var changes []schemas.ChangeRecord
	for rows.Next() {
		c := schemas.ChangeRecord{ArtifactID: artifactID}
		if err := rows.Scan(&c.ID, &c.RecordType, &c.RecordName, &c.PreviousHash, &c.CurrentHash, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan change row: %w", err)
		}
		c.ChangedAt = c.ChangedAt.UTC()
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return changes, nil
}

// contentHash is the hex blake3 digest of the record's canonical JSON.
func contentHash(v any) (string, error) {
	raw, err := jsonCodec.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode record for hashing: %w", err)
	}
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// rawJSON guards jsonb columns against empty or null input.
func rawJSON(b []byte) stdjson.RawMessage {
	if len(b) == 0 || string(b) == "null" {
		return stdjson.RawMessage("{}")
	}
	return stdjson.RawMessage(b)
}
