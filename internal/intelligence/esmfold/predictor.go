// Package esmfold is the client for the structure prediction serving
// endpoint.  Prediction is batch-oriented: one request carries every
// sequence that missed the cache, and the serving side returns one PDB
// artifact per input sequence, in input order.
package esmfold

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/pkg/errors"
	"github.com/foldbank/foldbank/pkg/types/protein"
)

// Predictor folds amino-acid sequences into serialized PDB structures.
//
// Predict is all-or-nothing: either every sequence in the batch folds and
// the result has exactly one artifact per input, or the whole call fails.
// Partial results are never returned.
type Predictor interface {
	Predict(ctx context.Context, sequences []protein.Sequence) ([][]byte, error)
	Healthy(ctx context.Context) error
}

// PredictRequest is the serving wire format for a fold batch.
type PredictRequest struct {
	RequestID string   `json:"request_id"`
	Model     string   `json:"model"`
	Sequences []string `json:"sequences"`
}

// PredictResponse carries one serialized PDB per requested sequence.
type PredictResponse struct {
	RequestID string   `json:"request_id"`
	PDBs      []string `json:"pdbs"`
	Error     string   `json:"error,omitempty"`
}

// Config holds the serving endpoint settings.
type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBatchSize int           `mapstructure:"max_batch_size"`
}

type httpPredictor struct {
	cfg    Config
	client *http.Client
	logger logging.Logger
}

// NewHTTPPredictor creates a Predictor backed by an HTTP serving endpoint.
func NewHTTPPredictor(cfg Config, logger logging.Logger) (Predictor, error) {
	if cfg.BaseURL == "" {
		return nil, errors.InvalidParam("predictor base URL cannot be empty")
	}
	if cfg.Model == "" {
		return nil, errors.InvalidParam("predictor model cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &httpPredictor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("esmfold"),
	}, nil
}

func (p *httpPredictor) Predict(ctx context.Context, sequences []protein.Sequence) ([][]byte, error) {
	if len(sequences) == 0 {
		return nil, nil
	}
	if p.cfg.MaxBatchSize > 0 && len(sequences) > p.cfg.MaxBatchSize {
		return nil, errors.Newf(errors.ErrCodeBadRequest,
			"batch of %d sequences exceeds limit %d", len(sequences), p.cfg.MaxBatchSize)
	}

	req := PredictRequest{
		RequestID: uuid.New().String(),
		Model:     p.cfg.Model,
		Sequences: make([]string, len(sequences)),
	}
	for i, s := range sequences {
		req.Sequences[i] = string(s)
	}

	p.logger.Info("submitting fold batch",
		logging.String("request_id", req.RequestID),
		logging.String("model", req.Model),
		logging.Int("batch_size", len(sequences)))

	start := time.Now()
	resp, err := p.post(ctx, &req)
	if err != nil {
		return nil, err
	}

	if len(resp.PDBs) != len(sequences) {
		return nil, errors.Newf(errors.ErrCodePredictorShape,
			"predictor returned %d structures for %d sequences", len(resp.PDBs), len(sequences))
	}

	out := make([][]byte, len(resp.PDBs))
	for i, pdb := range resp.PDBs {
		if pdb == "" {
			return nil, errors.Newf(errors.ErrCodePredictorShape,
				"predictor returned empty structure at index %d", i)
		}
		out[i] = []byte(pdb)
	}

	p.logger.Info("fold batch complete",
		logging.String("request_id", req.RequestID),
		logging.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (p *httpPredictor) post(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal predict request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v1/fold", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePredictorFailed, "build predict request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", req.RequestID)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePredictorFailed, "predictor request failed")
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePredictorFailed, "read predictor response")
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodePredictorFailed,
			"predictor returned status %d: %s", httpResp.StatusCode, truncate(data, 256))
	}

	var resp PredictResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "unmarshal predict response")
	}
	if resp.Error != "" {
		return nil, errors.Newf(errors.ErrCodePredictorFailed, "predictor error: %s", resp.Error)
	}
	return &resp, nil
}

func (p *httpPredictor) Healthy(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePredictorFailed, "build health request")
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "predictor unreachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCodeServiceUnavailable,
			"predictor health returned status %d", resp.StatusCode)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s... (%d bytes)", b[:n], len(b))
}
