// Package sqlstore stores execution snapshots in a database/sql database.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/petrijr/flowtest/internal/persistence"
)

// Dialect adapts the SQL snapshot store to one database.
type Dialect string

const (
	// DialectSQLite expects a driver such as modernc.org/sqlite ("sqlite").
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres expects github.com/jackc/pgx/v5/stdlib ("pgx").
	DialectPostgres Dialect = "postgres"
	// DialectMySQL expects github.com/go-sql-driver/mysql ("mysql").
	DialectMySQL Dialect = "mysql"
)

// DriverName is the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// placeholder returns the bind variable for the given index.
// Postgres uses $1, $2... while MySQL and SQLite use ?
func (d Dialect) placeholder(i int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (d Dialect) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

func (d Dialect) schema(table string) string {
	switch d {
	case DialectPostgres:
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
			execution_key TEXT NOT NULL,
			seq INTEGER NOT NULL,
			flow_id TEXT NOT NULL,
			state_id TEXT NOT NULL,
			status TEXT NOT NULL,
			outcome TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			execution BYTEA NOT NULL,
			PRIMARY KEY (execution_key, seq)
		)`
	case DialectMySQL:
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
			execution_key VARCHAR(64) NOT NULL,
			seq INT NOT NULL,
			flow_id VARCHAR(255) NOT NULL,
			state_id VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL,
			outcome VARCHAR(255) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			execution LONGBLOB NOT NULL,
			PRIMARY KEY (execution_key, seq)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	default:
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
			execution_key TEXT NOT NULL,
			seq INTEGER NOT NULL,
			flow_id TEXT NOT NULL,
			state_id TEXT NOT NULL,
			status TEXT NOT NULL,
			outcome TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			execution BLOB NOT NULL,
			PRIMARY KEY (execution_key, seq)
		)`
	}
}

func (d Dialect) upsert(table string) string {
	insert := `INSERT INTO ` + table + ` (execution_key, seq, flow_id, state_id, status, outcome, created_at, execution)
		VALUES (` + d.placeholders(8) + `)`
	switch d {
	case DialectMySQL:
		return insert + ` ON DUPLICATE KEY UPDATE flow_id = VALUES(flow_id), state_id = VALUES(state_id),
			status = VALUES(status), outcome = VALUES(outcome), created_at = VALUES(created_at), execution = VALUES(execution)`
	default:
		return insert + ` ON CONFLICT (execution_key, seq) DO UPDATE SET flow_id = excluded.flow_id,
			state_id = excluded.state_id, status = excluded.status, outcome = excluded.outcome,
			created_at = excluded.created_at, execution = excluded.execution`
	}
}

// Store is a persistence.SnapshotStore backed by a database/sql database.
//
// The caller is responsible for importing the driver of the dialect for
// its side effects, e.g.:
//
//	import _ "modernc.org/sqlite"
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

var _ persistence.SnapshotStore = (*Store)(nil)

// New initializes the required schema in the given database
// and returns a new store. table defaults to "flow_snapshots".
func New(ctx context.Context, db *sql.DB, dialect Dialect, table string) (*Store, error) {
	if table == "" {
		table = "flow_snapshots"
	}
	s := &Store{db: db, dialect: dialect, table: table}
	if _, err := db.ExecContext(ctx, dialect.schema(table)); err != nil {
		return nil, fmt.Errorf("create %s schema: %w", dialect, err)
	}
	return s, nil
}

// Open opens dsn with the driver of dialect and initializes
// the schema. The store owns the returned database.
func Open(ctx context.Context, dialect Dialect, dsn, table string) (*Store, *sql.DB, error) {
	dsn, err := normalizeDSN(dialect, dsn)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	s, err := New(ctx, db, dialect, table)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return s, db, nil
}

// normalizeDSN makes MySQL return DATETIME columns as time.Time.
func normalizeDSN(dialect Dialect, dsn string) (string, error) {
	if dialect != DialectMySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (s *Store) Save(ctx context.Context, snap *persistence.Snapshot) error {
	exec, err := persistence.EncodeExecution(snap.Execution)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.dialect.upsert(s.table),
		snap.ExecutionKey,
		snap.Seq,
		snap.FlowID,
		snap.StateID,
		snap.Status,
		snap.Outcome,
		snap.CreatedAt.UTC(),
		exec,
	)
	return err
}

func (s *Store) columns() string {
	return `SELECT execution_key, seq, flow_id, state_id, status, outcome, created_at, execution FROM ` + s.table
}

func (s *Store) Get(ctx context.Context, executionKey string, seq int) (*persistence.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		s.columns()+` WHERE execution_key = `+s.dialect.placeholder(1)+` AND seq = `+s.dialect.placeholder(2),
		executionKey, seq,
	)
	return scanSnapshot(row)
}

func (s *Store) Latest(ctx context.Context, executionKey string) (*persistence.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		s.columns()+` WHERE execution_key = `+s.dialect.placeholder(1)+` ORDER BY seq DESC LIMIT 1`,
		executionKey,
	)
	return scanSnapshot(row)
}

func (s *Store) List(ctx context.Context, executionKey string) ([]*persistence.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		s.columns()+` WHERE execution_key = `+s.dialect.placeholder(1)+` ORDER BY seq`,
		executionKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*persistence.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) Delete(ctx context.Context, executionKey string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM `+s.table+` WHERE execution_key = `+s.dialect.placeholder(1),
		executionKey,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*persistence.Snapshot, error) {
	var snap persistence.Snapshot
	var created time.Time
	var exec []byte
	if err := row.Scan(&snap.ExecutionKey, &snap.Seq, &snap.FlowID, &snap.StateID,
		&snap.Status, &snap.Outcome, &created, &exec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSnapshotNotFound
		}
		return nil, err
	}
	snap.CreatedAt = created.UTC()

	decoded, err := persistence.DecodeExecution(exec)
	if err != nil {
		return nil, err
	}
	snap.Execution = decoded
	return &snap, nil
}
