package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	linkerrors "github.com/gcbaptista/go-entity-linker/internal/errors"
	"github.com/gcbaptista/go-entity-linker/internal/tokenizer"
	"github.com/gcbaptista/go-entity-linker/model"
)

// PostgresStore is a knowledge base served from PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects to url and ensures the schema exists.
func OpenPostgres(ctx context.Context, url string, maxConnections int32, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = maxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 10
	}
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to prepare postgres schema: %w", err)
		}
	}

	logger.Info("Connected to postgres knowledge base", zap.Int32("max_connections", poolConfig.MaxConns))
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// LookupCandidates returns the pages registered under surfaceForm ordered by page id.
func (s *PostgresStore) LookupCandidates(ctx context.Context, surfaceForm string) ([]model.CandidateRecord, error) {
	rows, err := s.pool.Query(ctx, lookupCandidatesQuery, surfaceForm)
	if err != nil {
		return nil, linkerrors.NewKnowledgeBaseError("candidate lookup", err)
	}
	defer rows.Close()

	var records []model.CandidateRecord
	for rows.Next() {
		var r model.CandidateRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.RawCount, &r.Context); err != nil {
			return nil, linkerrors.NewKnowledgeBaseError("candidate lookup", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, linkerrors.NewKnowledgeBaseError("candidate lookup", err)
	}
	return records, nil
}

// SourceCount returns the number of links pointing to id.
func (s *PostgresStore) SourceCount(ctx context.Context, id int64) (int, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, sourceCountQuery, id).Scan(&count); err != nil {
		return 0, linkerrors.NewKnowledgeBaseError("source count", err)
	}
	return int(count), nil
}

// IntersectionCount returns the number of pages linking to both ids.
func (s *PostgresStore) IntersectionCount(ctx context.Context, id1, id2 int64) (int, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, intersectionCountQuery, id1, id2).Scan(&count); err != nil {
		return 0, linkerrors.NewKnowledgeBaseError("intersection count", err)
	}
	return int(count), nil
}

// Import writes the data in a single transaction using batched statements.
func (s *PostgresStore) Import(ctx context.Context, data *model.KnowledgeBaseData, progress func(done, total int)) error {
	if err := ValidateData(data); err != nil {
		return err
	}

	total := data.Size()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range data.Pages {
			serialized, err := EncodeContext(p.Context)
			if err != nil {
				return fmt.Errorf("page %d: %w", p.ID, err)
			}
			batch.Queue(upsertPage, p.ID, p.Title, serialized)
		}
		for _, d := range data.Dictionary {
			batch.Queue(upsertDictionary, tokenizer.Normalize(d.SurfaceForm), d.PageID, d.Count)
		}
		for _, l := range data.Links {
			batch.Queue(insertLink, l.Source, l.Destination)
		}

		results := tx.SendBatch(ctx, batch)
		for done := 1; done <= batch.Len(); done++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return err
			}
			if progress != nil && (done%1000 == 0 || done == total) {
				progress(done, total)
			}
		}
		return results.Close()
	})
	if err != nil {
		return linkerrors.NewKnowledgeBaseError("import", err)
	}

	s.logger.Info("Imported knowledge base data into postgres",
		zap.Int("pages", len(data.Pages)),
		zap.Int("dictionary_entries", len(data.Dictionary)),
		zap.Int("links", len(data.Links)))
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
