package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ragstore/pkg/types"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

const recordColumns = `id, session_id, interaction_id, document_id, document_group_id,
       filename, chunk_offset, content, vector, dimension, provider, model, created_at`

// insertRecordWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) insertRecordWithQuerier(ctx context.Context, q querier, rec *Record) error {
	if rec.SessionID == "" {
		return types.NewError(types.KindValidation, "record session id cannot be empty")
	}
	if rec.DocumentID == "" {
		return types.NewError(types.KindValidation, "record document id cannot be empty")
	}
	if rec.Content == "" {
		return types.NewError(types.KindValidation, "record content cannot be empty")
	}
	if rec.Dimension <= 0 || len(rec.Vector) != rec.Dimension*4 {
		return types.Errorf(types.KindValidation,
			"vector blob is %d bytes, expected %d for dimension %d",
			len(rec.Vector), rec.Dimension*4, rec.Dimension)
	}

	// The first inserted record fixes the store's dimension
	existing, err := s.dimensionWithQuerier(ctx, q)
	if err != nil {
		return err
	}
	if existing != 0 && existing != rec.Dimension {
		return types.Errorf(types.KindDimensionMismatch,
			"record dimension %d does not match store dimension %d", rec.Dimension, existing)
	}

	query := `
		INSERT INTO records (session_id, interaction_id, document_id, document_group_id,
		                     filename, chunk_offset, content, vector, dimension,
		                     provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		rec.SessionID, rec.InteractionID, rec.DocumentID, rec.DocumentGroupID,
		rec.Filename, rec.Offset, rec.Content, rec.Vector, rec.Dimension,
		rec.Provider, rec.Model, now)
	if err != nil {
		return types.WrapError(types.KindStorageFailure, err, "failed to insert record")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return types.WrapError(types.KindStorageFailure, err, "failed to read record id")
	}
	rec.ID = id
	rec.CreatedAt = now
	return nil
}

func (s *SQLiteStore) InsertRecord(ctx context.Context, rec *Record) error {
	return s.insertRecordWithQuerier(ctx, s.db, rec)
}

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var rec Record
	var interactionID, groupID, filename, provider, model sql.NullString
	err := row.Scan(
		&rec.ID, &rec.SessionID, &interactionID, &rec.DocumentID, &groupID,
		&filename, &rec.Offset, &rec.Content, &rec.Vector, &rec.Dimension,
		&provider, &model, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.InteractionID = interactionID.String
	rec.DocumentGroupID = groupID.String
	rec.Filename = filename.String
	rec.Provider = provider.String
	rec.Model = model.String
	return &rec, nil
}

// getRecordWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getRecordWithQuerier(ctx context.Context, q querier, id int64) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = ?`
	rec, err := scanRecord(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.Errorf(types.KindNotFound, "record %d not found", id)
	}
	if err != nil {
		return nil, types.WrapError(types.KindStorageFailure, err, "failed to get record")
	}
	return rec, nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id int64) (*Record, error) {
	return s.getRecordWithQuerier(ctx, s.db, id)
}

// listSessionRecordsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) listSessionRecordsWithQuerier(ctx context.Context, q querier, sessionID string) ([]*Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM records
		WHERE session_id = ?
		ORDER BY document_id, chunk_offset, id`
	rows, err := q.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, types.WrapError(types.KindStorageFailure, err, "failed to list records")
	}
	defer func() { _ = rows.Close() }()

	records := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, types.WrapError(types.KindStorageFailure, err, "failed to scan record")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ListSessionRecords(ctx context.Context, sessionID string) ([]*Record, error) {
	return s.listSessionRecordsWithQuerier(ctx, s.db, sessionID)
}

func (s *SQLiteStore) CountSession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, types.WrapError(types.KindStorageFailure, err, "failed to count session records")
	}
	return n, nil
}

// deleteSessionWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) deleteSessionWithQuerier(ctx context.Context, q querier, sessionID string) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM records WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, types.WrapError(types.KindStorageFailure, err, "failed to delete session")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	return s.deleteSessionWithQuerier(ctx, s.db, sessionID)
}

// deleteDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) deleteDocumentWithQuerier(ctx context.Context, q querier, sessionID, documentID string) (int, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM records WHERE session_id = ? AND document_id = ?`, sessionID, documentID)
	if err != nil {
		return 0, types.WrapError(types.KindStorageFailure, err, "failed to delete document")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, sessionID, documentID string) (int, error) {
	return s.deleteDocumentWithQuerier(ctx, s.db, sessionID, documentID)
}

// dimensionWithQuerier reads the established store dimension, 0 when empty
func (s *SQLiteStore) dimensionWithQuerier(ctx context.Context, q querier) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, `SELECT dimension FROM records LIMIT 1`).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, types.WrapError(types.KindStorageFailure, err, "failed to read store dimension")
	}
	return dim, nil
}

func (s *SQLiteStore) Dimension(ctx context.Context) (int, error) {
	return s.dimensionWithQuerier(ctx, s.db)
}

// Search operations

func (s *SQLiteStore) SearchVector(ctx context.Context, sessionID string, query []float32, limit int) ([]VectorResult, error) {
	dim, err := s.Dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim != 0 && len(query) != dim {
		return nil, types.Errorf(types.KindDimensionMismatch,
			"query dimension %d does not match store dimension %d", len(query), dim)
	}
	return searchVector(ctx, s.db, sessionID, query, limit)
}

func (s *SQLiteStore) SearchText(ctx context.Context, sessionID, query string, limit int) ([]TextResult, error) {
	return searchText(ctx, s.db, sessionID, query, limit)
}

// Status operations

func (s *SQLiteStore) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT session_id), COUNT(DISTINCT document_id)
		FROM records
	`).Scan(&status.Records, &status.Sessions, &status.Documents)
	if err != nil {
		return nil, types.WrapError(types.KindStorageFailure, err, "failed to count records")
	}

	dim, err := s.Dimension(ctx)
	if err != nil {
		return nil, err
	}
	status.Dimension = dim

	var version sql.NullString
	if err := s.db.QueryRowContext(ctx,
		"SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version); err == nil {
		status.SchemaVersion = version.String
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// Transaction implementations delegate to the internal querier helpers

func (t *sqliteTx) InsertRecord(ctx context.Context, rec *Record) error {
	return t.store.insertRecordWithQuerier(ctx, t.tx, rec)
}

func (t *sqliteTx) GetRecord(ctx context.Context, id int64) (*Record, error) {
	return t.store.getRecordWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) ListSessionRecords(ctx context.Context, sessionID string) ([]*Record, error) {
	return t.store.listSessionRecordsWithQuerier(ctx, t.tx, sessionID)
}

func (t *sqliteTx) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	return t.store.deleteSessionWithQuerier(ctx, t.tx, sessionID)
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, sessionID, documentID string) (int, error) {
	return t.store.deleteDocumentWithQuerier(ctx, t.tx, sessionID, documentID)
}
