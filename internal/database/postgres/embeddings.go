package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/attendease/internal/database"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingRepository provides PostgreSQL-backed embedding storage.
type EmbeddingRepository struct {
	pool *Pool
	dim  int
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository.
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool, dim: FaceEmbeddingDim}
}

// Add appends one embedding for a user.
func (r *EmbeddingRepository) Add(ctx context.Context, emb *database.StoredEmbedding) error {
	if len(emb.Embedding) != r.dim {
		return fmt.Errorf("%w: got %d, want %d", database.ErrInvalidVector, len(emb.Embedding), r.dim)
	}

	query := `
		INSERT INTO embeddings (user_id, image_ref, embedding, model, dim)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		emb.UserID,
		emb.ImageRef,
		pgvector.NewVector(emb.Embedding),
		emb.Model,
		len(emb.Embedding),
	).Scan(&emb.ID, &emb.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	emb.Dim = len(emb.Embedding)
	return nil
}

// AllForUser returns the user's vectors in insertion order.
func (r *EmbeddingRepository) AllForUser(ctx context.Context, userID int64) ([]database.StoredEmbedding, error) {
	query := `
		SELECT id, user_id, image_ref, embedding, model, dim, created_at
		FROM embeddings
		WHERE user_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	return scanEmbeddings(rows)
}

// AllByUser returns every user's vectors in one bulk read.
func (r *EmbeddingRepository) AllByUser(ctx context.Context) (map[int64][][]float32, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, embedding FROM embeddings ORDER BY user_id, id`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	candidates := make(map[int64][][]float32)
	for rows.Next() {
		var userID int64
		var vec pgvector.Vector
		if err := rows.Scan(&userID, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		candidates[userID] = append(candidates[userID], vec.Slice())
	}
	return candidates, rows.Err()
}

// All returns every stored embedding row.
func (r *EmbeddingRepository) All(ctx context.Context) ([]database.StoredEmbedding, error) {
	query := `
		SELECT id, user_id, image_ref, embedding, model, dim, created_at
		FROM embeddings
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	return scanEmbeddings(rows)
}

// Clear removes all vectors for a user.
func (r *EmbeddingRepository) Clear(ctx context.Context, userID int64) (int, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM embeddings WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear embeddings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear embeddings: %w", err)
	}
	return int(n), nil
}

// Count returns the total number of embeddings stored.
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

type embeddingRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEmbeddings(rows embeddingRows) ([]database.StoredEmbedding, error) {
	embeddings := []database.StoredEmbedding{}
	for rows.Next() {
		var emb database.StoredEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&emb.ID, &emb.UserID, &emb.ImageRef, &vec, &emb.Model, &emb.Dim, &emb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		emb.Embedding = vec.Slice()
		embeddings = append(embeddings, emb)
	}
	return embeddings, rows.Err()
}
