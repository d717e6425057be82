package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/pkg/errors"
)

// PredictionRecord is one predicted structure's registry row.
type PredictionRecord struct {
	ID             uuid.UUID `json:"id"`
	SequenceDigest string    `json:"sequence_digest"`
	SequenceLength int       `json:"sequence_length"`
	Model          string    `json:"model"`
	ArtifactKey    string    `json:"artifact_key"`
	ResidueCount   int       `json:"residue_count"`
	MeanPLDDT      float64   `json:"mean_plddt"`
	CreatedAt      time.Time `json:"created_at"`
}

// PredictionRepository persists prediction metadata.
type PredictionRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewPredictionRepository constructs a ready-to-use PredictionRepository.
func NewPredictionRepository(conn *Connection) *PredictionRepository {
	return &PredictionRepository{db: conn.DB(), logger: conn.logger.Named("predictions")}
}

// Insert records a prediction.  A digest already present is left untouched;
// re-predicting the same sequence with the same model is a no-op for the
// registry.
func (r *PredictionRepository) Insert(ctx context.Context, rec *PredictionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO predictions (
			id, sequence_digest, sequence_length, model,
			artifact_key, residue_count, mean_plddt, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sequence_digest, model) DO NOTHING`,
		rec.ID, rec.SequenceDigest, rec.SequenceLength, rec.Model,
		rec.ArtifactKey, rec.ResidueCount, rec.MeanPLDDT, rec.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "insert prediction")
	}

	r.logger.Debug("prediction recorded",
		logging.String("digest", rec.SequenceDigest),
		logging.String("model", rec.Model))
	return nil
}

// GetByDigest returns the registry row for a sequence digest and model.
func (r *PredictionRepository) GetByDigest(ctx context.Context, digest, model string) (*PredictionRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, sequence_digest, sequence_length, model,
		       artifact_key, residue_count, mean_plddt, created_at
		FROM predictions
		WHERE sequence_digest = $1 AND model = $2`,
		digest, model,
	)

	var rec PredictionRecord
	err := row.Scan(
		&rec.ID, &rec.SequenceDigest, &rec.SequenceLength, &rec.Model,
		&rec.ArtifactKey, &rec.ResidueCount, &rec.MeanPLDDT, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(fmt.Sprintf(
			"no prediction recorded for digest %s model %s", digest, model))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query prediction")
	}
	return &rec, nil
}

// ListRecent returns the newest rows, newest first.
func (r *PredictionRepository) ListRecent(ctx context.Context, limit int) ([]*PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sequence_digest, sequence_length, model,
		       artifact_key, residue_count, mean_plddt, created_at
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "list predictions")
	}
	defer rows.Close()

	var out []*PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(
			&rec.ID, &rec.SequenceDigest, &rec.SequenceLength, &rec.Model,
			&rec.ArtifactKey, &rec.ResidueCount, &rec.MeanPLDDT, &rec.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan prediction")
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate predictions")
	}
	return out, nil
}

// Count returns the number of registry rows.
func (r *PredictionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "count predictions")
	}
	return n, nil
}
