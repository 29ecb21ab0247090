package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/postgres"
)

// Schema creates the mining_runs table and its lookup index.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS mining_runs (
		id           BIGSERIAL PRIMARY KEY,
		dataset      TEXT NOT NULL,
		strategy     TEXT NOT NULL,
		k            INTEGER NOT NULL,
		transactions INTEGER NOT NULL,
		items        INTEGER NOT NULL,
		threshold    DOUBLE PRECISION NOT NULL,
		density      DOUBLE PRECISION NOT NULL,
		role         TEXT NOT NULL DEFAULT '',
		elapsed_ms   DOUBLE PRECISION NOT NULL,
		memory_mb    DOUBLE PRECISION NOT NULL,
		itemsets     JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS mining_runs_lookup
		ON mining_runs (dataset, strategy, created_at DESC)`,
}

const selectRun = `SELECT id, dataset, strategy, k, transactions, items, threshold,
	density, role, elapsed_ms, memory_mb, itemsets, created_at FROM mining_runs`

// Store persists mining runs in PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a run store on db.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("run-store"),
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Schema...)
}

// SaveRun inserts run and returns its ID.
func (s *Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	data, err := json.Marshal(run.Itemsets)
	if err != nil {
		return 0, fmt.Errorf("marshaling itemsets: %w", err)
	}
	var id int64
	err = s.db.DB.QueryRowContext(ctx,
		`INSERT INTO mining_runs
			(dataset, strategy, k, transactions, items, threshold, density, role,
			 elapsed_ms, memory_mb, itemsets, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		run.Dataset, run.Strategy, run.K, run.Transactions, run.Items, run.Threshold,
		run.Density, run.Role, run.ElapsedMS, run.MemoryMB, data, run.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saving mining run: %w", err)
	}
	s.logger.Info("mining run saved",
		"id", id,
		"dataset", run.Dataset,
		"strategy", run.Strategy,
		"k", run.K,
	)
	return id, nil
}

// LatestRun loads the most recent run of strategy on dataset. It returns
// nil, nil if none exists.
func (s *Store) LatestRun(ctx context.Context, dataset, strategy string) (*Run, error) {
	row := s.db.DB.QueryRowContext(ctx,
		selectRun+` WHERE dataset = $1 AND strategy = $2 ORDER BY created_at DESC LIMIT 1`,
		dataset, strategy,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns the last limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		selectRun+` ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			s.logger.Warn("skipping corrupt run", "error", err)
			continue
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run  Run
		data []byte
	)
	err := sc.Scan(&run.ID, &run.Dataset, &run.Strategy, &run.K, &run.Transactions,
		&run.Items, &run.Threshold, &run.Density, &run.Role, &run.ElapsedMS,
		&run.MemoryMB, &data, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	var sets []itemset.Itemset
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("unmarshaling itemsets of run %d: %w", run.ID, err)
	}
	run.Itemsets = sets
	return &run, nil
}
