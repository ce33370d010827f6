package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kadirpekel/crewcore/tools"
)

// createLongTermTableSQL is the long-term memory schema, grounded on the
// teacher's session_service_sql.go createSessionsTableSQL/
// createMessagesTableSQL shape (CREATE TABLE IF NOT EXISTS + indexes).
// quality_score records the caller-supplied metadata["quality_score"]
// (spec.md §4.7: "long-term entries may carry a quality score that biases
// ranking"), defaulting to 1.0 when absent.
const createLongTermTableSQL = `
CREATE TABLE IF NOT EXISTS long_term_memory (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content TEXT NOT NULL,
    metadata_json TEXT NOT NULL,
    quality_score REAL NOT NULL DEFAULT 1.0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_long_term_created_at ON long_term_memory(created_at);
`

// SQLiteLongTermStore is the reference long-term Store backend, per
// spec.md §4.7 ("a reference long-term implementation backed by a durable
// store"). Grounded on the teacher's SQLSessionService: database/sql over
// a blank-imported github.com/mattn/go-sqlite3 driver, with an
// idempotent CREATE TABLE IF NOT EXISTS schema run once at construction.
type SQLiteLongTermStore struct {
	db *sql.DB
}

// NewSQLiteLongTermStore opens path (or ":memory:") and initializes the
// long-term schema.
func NewSQLiteLongTermStore(path string) (*SQLiteLongTermStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite long-term store: %w", err)
	}
	if _, err := db.Exec(createLongTermTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init long-term schema: %w", err)
	}
	return &SQLiteLongTermStore{db: db}, nil
}

func (s *SQLiteLongTermStore) Kind() Kind { return KindLongTerm }

func (s *SQLiteLongTermStore) Close() error { return s.db.Close() }

func (s *SQLiteLongTermStore) Save(ctx context.Context, value string, metadata map[string]any) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal long-term metadata: %w", err)
	}
	quality := 1.0
	if q, ok := metadata["quality_score"].(float64); ok {
		quality = q
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO long_term_memory (content, metadata_json, quality_score, created_at) VALUES (?, ?, ?, ?)`,
		value, string(metaJSON), quality, time.Now().UTC(),
	)
	return err
}

// Search scans stored rows and ranks by LCS text relevance weighted by
// each row's quality score, per spec.md §4.7's quality-biased ranking.
func (s *SQLiteLongTermStore) Search(ctx context.Context, query string, limit int, scoreThreshold float64) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT content, metadata_json, quality_score FROM long_term_memory`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var content, metaJSON string
		var quality float64
		if err := rows.Scan(&content, &metaJSON, &quality); err != nil {
			return nil, err
		}
		var metadata map[string]any
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
				return nil, fmt.Errorf("unmarshal long-term metadata: %w", err)
			}
		}
		score := tools.LCSSimilarity(query, content) * quality
		if score < scoreThreshold {
			continue
		}
		results = append(results, Result{Content: content, Score: score, Metadata: metadata})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortByScoreDesc(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
