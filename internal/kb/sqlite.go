package kb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	linkerrors "github.com/gcbaptista/go-entity-linker/internal/errors"
	"github.com/gcbaptista/go-entity-linker/internal/tokenizer"
	"github.com/gcbaptista/go-entity-linker/model"
)

var numberedPlaceholder = regexp.MustCompile(`\$\d+`)

// sqliteQuery rewrites $N placeholders into positional ones. Every shared
// statement uses its parameters in ascending order.
func sqliteQuery(query string) string {
	return numberedPlaceholder.ReplaceAllString(query, "?")
}

// SQLiteStore is a knowledge base kept in an embedded SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the SQLite database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to prepare sqlite schema: %w", err)
		}
	}

	logger.Info("Opened sqlite knowledge base", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// LookupCandidates returns the pages registered under surfaceForm ordered by page id.
func (s *SQLiteStore) LookupCandidates(ctx context.Context, surfaceForm string) ([]model.CandidateRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqliteQuery(lookupCandidatesQuery), surfaceForm)
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
func (s *SQLiteStore) SourceCount(ctx context.Context, id int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, sqliteQuery(sourceCountQuery), id).Scan(&count); err != nil {
		return 0, linkerrors.NewKnowledgeBaseError("source count", err)
	}
	return count, nil
}

// IntersectionCount returns the number of pages linking to both ids.
func (s *SQLiteStore) IntersectionCount(ctx context.Context, id1, id2 int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, sqliteQuery(intersectionCountQuery), id1, id2).Scan(&count); err != nil {
		return 0, linkerrors.NewKnowledgeBaseError("intersection count", err)
	}
	return count, nil
}

// Import writes the data in a single transaction.
func (s *SQLiteStore) Import(ctx context.Context, data *model.KnowledgeBaseData, progress func(done, total int)) (err error) {
	if err := ValidateData(data); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return linkerrors.NewKnowledgeBaseError("import", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	total, done := data.Size(), 0
	report := func() {
		if progress != nil {
			progress(done, total)
		}
	}

	pageStmt, err := tx.PrepareContext(ctx, sqliteQuery(upsertPage))
	if err != nil {
		return linkerrors.NewKnowledgeBaseError("import", err)
	}
	defer pageStmt.Close()
	for _, p := range data.Pages {
		serialized, err := EncodeContext(p.Context)
		if err != nil {
			return fmt.Errorf("page %d: %w", p.ID, err)
		}
		if _, err := pageStmt.ExecContext(ctx, p.ID, p.Title, serialized); err != nil {
			return linkerrors.NewKnowledgeBaseError("import page", err)
		}
		done++
	}
	report()

	dictStmt, err := tx.PrepareContext(ctx, sqliteQuery(upsertDictionary))
	if err != nil {
		return linkerrors.NewKnowledgeBaseError("import", err)
	}
	defer dictStmt.Close()
	for _, d := range data.Dictionary {
		if _, err := dictStmt.ExecContext(ctx, tokenizer.Normalize(d.SurfaceForm), d.PageID, d.Count); err != nil {
			return linkerrors.NewKnowledgeBaseError("import dictionary", err)
		}
		done++
	}
	report()

	linkStmt, err := tx.PrepareContext(ctx, sqliteQuery(insertLink))
	if err != nil {
		return linkerrors.NewKnowledgeBaseError("import", err)
	}
	defer linkStmt.Close()
	for _, l := range data.Links {
		if _, err := linkStmt.ExecContext(ctx, l.Source, l.Destination); err != nil {
			return linkerrors.NewKnowledgeBaseError("import link", err)
		}
		done++
	}
	report()

	if err := tx.Commit(); err != nil {
		return linkerrors.NewKnowledgeBaseError("import commit", err)
	}

	s.logger.Info("Imported knowledge base data into sqlite",
		zap.Int("pages", len(data.Pages)),
		zap.Int("dictionary_entries", len(data.Dictionary)),
		zap.Int("links", len(data.Links)))
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
