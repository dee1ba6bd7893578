package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
)

// SQL implements Journal using database/sql.
// It works with both the postgres and sqlite drivers.
type SQL struct {
	db *sql.DB
}

func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// Open connects with driverName, creates the table and returns the journal.
func Open(ctx context.Context, driverName, dsn string) (*SQL, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", driverName, err)
	}
	if driverName == "sqlite" {
		// a single writer keeps sqlite from returning SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: ping %s: %w", driverName, err)
	}
	j := NewSQL(db)
	if err := j.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS charter_journal (
	sequence BIGINT PRIMARY KEY,
	call_id TEXT NOT NULL UNIQUE,
	op TEXT NOT NULL,
	caller TEXT NOT NULL,
	value TEXT NOT NULL,
	args TEXT NOT NULL,
	state_hash TEXT NOT NULL,
	prev_hash TEXT NOT NULL,
	hash TEXT NOT NULL,
	engine_version TEXT NOT NULL,
	committed_at TEXT NOT NULL
);
`

func (s *SQL) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("journal: init schema: %w", err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// Append seals e against the current tail and inserts it in one transaction.
func (s *SQL) Append(ctx context.Context, e Entry) (Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// 1. Tail
	var (
		seq  int64
		prev = GenesisHash
	)
	err = tx.QueryRowContext(ctx, `SELECT sequence, hash FROM charter_journal ORDER BY sequence DESC LIMIT 1`).Scan(&seq, &prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("journal: read tail: %w", err)
	}

	// 2. Seal
	sealed, err := seal(e, uint64(seq), prev)
	if err != nil {
		return Entry{}, err
	}
	args := string(sealed.Args)
	if args == "" {
		args = "null"
	}

	// 3. Insert
	query := `
		INSERT INTO charter_journal (sequence, call_id, op, caller, value, args, state_hash, prev_hash, hash, engine_version, committed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, query,
		int64(sealed.Sequence), sealed.CallID, sealed.Op, sealed.Caller.String(), sealed.Value.String(), args,
		sealed.StateHash, sealed.PrevHash, sealed.Hash, sealed.EngineVersion, sealed.CommittedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: insert sequence %d: %w", sealed.Sequence, err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("journal: commit sequence %d: %w", sealed.Sequence, err)
	}
	return sealed, nil
}

// Entries returns all entries in sequence order.
func (s *SQL) Entries(ctx context.Context) ([]Entry, error) {
	query := `SELECT sequence, call_id, op, caller, value, args, state_hash, prev_hash, hash, engine_version, committed_at FROM charter_journal ORDER BY sequence`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("journal: query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]Entry, 0)
	for rows.Next() {
		var (
			e                              Entry
			seq                            int64
			caller, value, args, committed string
		)
		if err := rows.Scan(&seq, &e.CallID, &e.Op, &caller, &value, &args, &e.StateHash, &e.PrevHash, &e.Hash, &e.EngineVersion, &committed); err != nil {
			return nil, fmt.Errorf("journal: scan entry: %w", err)
		}
		e.Sequence = uint64(seq)
		if e.Caller, err = identity.Parse(caller); err != nil {
			return nil, fmt.Errorf("journal: sequence %d: %w", seq, err)
		}
		if e.Value, err = money.Parse(value); err != nil {
			return nil, fmt.Errorf("journal: sequence %d: %w", seq, err)
		}
		if e.CommittedAt, err = time.Parse(time.RFC3339Nano, committed); err != nil {
			return nil, fmt.Errorf("journal: sequence %d committed_at: %w", seq, err)
		}
		e.Args = []byte(args)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate entries: %w", err)
	}
	return result, nil
}
