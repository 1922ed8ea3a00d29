package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a persistent single-file vector store. Similarity is
// still brute-force cosine computed in-process; sqlite only provides
// durability and insertion ordering (rowid). The default driver for
// single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// Brute-force scans read the whole table; a single connection keeps
	// modernc's file locking simple.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite vector store initialized")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS vectors (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			paper_id   TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL DEFAULT '',
			metadata   TEXT NOT NULL DEFAULT '{}',
			vector     BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_vectors_paper ON vectors (paper_id);
	`)
	return err
}

func (s *SQLiteStore) Kind() string { return "sqlite" }

func (s *SQLiteStore) Upsert(ctx context.Context, docs []models.VectorDoc) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		created := d.CreatedAt
		if created.IsZero() {
			created = now
		}
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite marshal metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO vectors (id, paper_id, content, metadata, vector, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				paper_id = excluded.paper_id,
				content  = excluded.content,
				metadata = excluded.metadata,
				vector   = excluded.vector
		`, id, d.PaperID, d.Content, string(meta), encodeVector(d.Vector), created.UnixNano())
		if err != nil {
			return fmt.Errorf("sqlite upsert: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Search(ctx context.Context, vector []float64, topK int) ([]models.SearchResult, error) {
	// Scan in seq order so equal scores keep insertion order after the
	// stable sort below.
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, paper_id, content, metadata, vector, created_at
		FROM vectors ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite search: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var (
			doc     models.VectorDoc
			meta    string
			blob    []byte
			created int64
		)
		if err := rows.Scan(&doc.Seq, &doc.ID, &doc.PaperID, &doc.Content, &meta, &blob, &created); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		doc.Vector = decodeVector(blob)
		if len(doc.Vector) != len(vector) {
			continue
		}
		doc.CreatedAt = time.Unix(0, created)
		if meta != "" && meta != "{}" {
			json.Unmarshal([]byte(meta), &doc.Metadata)
		}
		results = append(results, models.SearchResult{Doc: doc, Score: CosineSimilarity(vector, doc.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite delete: %w", err)
		}
	}
	return nil
}

// PurgeOlderThan removes docs created before cutoff. Timestamps are
// stored as unix nanos so the comparison is numeric, not lexical.
func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// encodeVector packs float64s little-endian; compact and exact.
func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}
