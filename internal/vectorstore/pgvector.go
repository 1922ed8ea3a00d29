package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PgvectorStore implements VectorStoreDriver on PostgreSQL with the
// pgvector extension. Users provide their own instance; similarity is
// computed server-side with the cosine distance operator.
type PgvectorStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPgvectorStore connects and runs the schema migration.
func NewPgvectorStore(ctx context.Context, connURL string, dimensions int) (*PgvectorStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("pgvector connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector ping: %w", err)
	}

	s := &PgvectorStore{pool: pool, dimensions: dimensions}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector migrate: %w", err)
	}

	log.Info().Int("dims", dimensions).Msg("pgvector store initialized")
	return s, nil
}

func (s *PgvectorStore) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS am_vectors (
			seq        BIGSERIAL,
			id         TEXT PRIMARY KEY,
			paper_id   TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL DEFAULT '',
			metadata   JSONB NOT NULL DEFAULT '{}',
			vector     vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_am_vectors_paper ON am_vectors (paper_id);
	`, s.dimensions)

	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PgvectorStore) Kind() string { return "pgvector" }

func (s *PgvectorStore) Upsert(ctx context.Context, docs []models.VectorDoc) error {
	if len(docs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO am_vectors (id, paper_id, content, metadata, vector, created_at) VALUES `)

	args := make([]interface{}, 0, len(docs)*6)
	for i, d := range docs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i*6 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", base, base+1, base+2, base+3, base+4, base+5))
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		created := d.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		metadata := d.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		args = append(args, id, d.PaperID, d.Content, metadata, pgvectorArray(d.Vector), created)
	}

	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET
		paper_id = EXCLUDED.paper_id,
		content  = EXCLUDED.content,
		metadata = EXCLUDED.metadata,
		vector   = EXCLUDED.vector`)

	_, err := s.pool.Exec(ctx, sb.String(), args...)
	return err
}

func (s *PgvectorStore) Search(ctx context.Context, vector []float64, topK int) ([]models.SearchResult, error) {
	// seq in the ORDER BY pins equal-distance rows to insertion order.
	rows, err := s.pool.Query(ctx, `
		SELECT seq, id, paper_id, content, metadata, created_at,
			1 - (vector <=> $1) AS score
		FROM am_vectors
		ORDER BY vector <=> $1, seq
		LIMIT $2
	`, pgvectorArray(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var doc models.VectorDoc
		var score float64
		if err := rows.Scan(&doc.Seq, &doc.ID, &doc.PaperID, &doc.Content, &doc.Metadata, &doc.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("pgvector scan: %w", err)
		}
		results = append(results, models.SearchResult{Doc: doc, Score: score})
	}
	return results, rows.Err()
}

func (s *PgvectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM am_vectors WHERE id = ANY($1)`, ids)
	return err
}

// PurgeOlderThan removes docs created before cutoff.
func (s *PgvectorStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM am_vectors WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pgvector purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM am_vectors`).Scan(&n)
	return n, err
}

func (s *PgvectorStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PgvectorStore) Close() { s.pool.Close() }

// pgvectorArray renders a vector literal, e.g. "[0.1,0.2]".
func pgvectorArray(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
