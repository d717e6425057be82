package esmfold

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldbank/foldbank/internal/domain/structure"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/pkg/errors"
	"github.com/foldbank/foldbank/pkg/types/protein"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Model:        "esmfold_v1",
		Timeout:      5 * time.Second,
		MaxBatchSize: 8,
	}
}

func TestNewHTTPPredictor(t *testing.T) {
	logger := logging.NewNopLogger()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: testConfig("http://localhost:8500")},
		{name: "missing base URL", cfg: Config{Model: "esmfold_v1"}, wantErr: true},
		{name: "missing model", cfg: Config{BaseURL: "http://localhost:8500"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewHTTPPredictor(tt.cfg, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestHTTPPredictorPredict(t *testing.T) {
	fake := NewFakePredictor()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/fold", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "esmfold_v1", req.Model)

		seqs := make([]protein.Sequence, len(req.Sequences))
		for i, s := range req.Sequences {
			seqs[i] = protein.Sequence(s)
		}
		pdbs, err := fake.Predict(r.Context(), seqs)
		require.NoError(t, err)

		resp := PredictResponse{RequestID: req.RequestID}
		for _, pdb := range pdbs {
			resp.PDBs = append(resp.PDBs, string(pdb))
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p, err := NewHTTPPredictor(testConfig(srv.URL), logging.NewNopLogger())
	require.NoError(t, err)

	out, err := p.Predict(context.Background(), []protein.Sequence{"MKV", "ACDEF"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	rec, err := structure.Parse(out[0])
	require.NoError(t, err)
	assert.Equal(t, "MKV", rec.Sequence())

	rec, err = structure.Parse(out[1])
	require.NoError(t, err)
	assert.Equal(t, "ACDEF", rec.Sequence())
}

func TestHTTPPredictorEmptyBatch(t *testing.T) {
	p, err := NewHTTPPredictor(testConfig("http://localhost:8500"), logging.NewNopLogger())
	require.NoError(t, err)

	out, err := p.Predict(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestHTTPPredictorBatchLimit(t *testing.T) {
	cfg := testConfig("http://localhost:8500")
	cfg.MaxBatchSize = 1
	p, err := NewHTTPPredictor(cfg, logging.NewNopLogger())
	require.NoError(t, err)

	_, err = p.Predict(context.Background(), []protein.Sequence{"MKV", "ACD"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestHTTPPredictorShapeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PredictResponse{PDBs: []string{"only one"}})
	}))
	defer srv.Close()

	p, err := NewHTTPPredictor(testConfig(srv.URL), logging.NewNopLogger())
	require.NoError(t, err)

	_, err = p.Predict(context.Background(), []protein.Sequence{"MKV", "ACD"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePredictorShape))
}

func TestHTTPPredictorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewHTTPPredictor(testConfig(srv.URL), logging.NewNopLogger())
	require.NoError(t, err)

	_, err = p.Predict(context.Background(), []protein.Sequence{"MKV"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePredictorFailed))
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPPredictorApplicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PredictResponse{Error: "sequence rejected"})
	}))
	defer srv.Close()

	p, err := NewHTTPPredictor(testConfig(srv.URL), logging.NewNopLogger())
	require.NoError(t, err)

	_, err = p.Predict(context.Background(), []protein.Sequence{"MKV"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePredictorFailed))
	assert.Contains(t, err.Error(), "sequence rejected")
}

func TestHTTPPredictorHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := NewHTTPPredictor(testConfig(srv.URL), logging.NewNopLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Healthy(context.Background()))
}

func TestFakePredictor(t *testing.T) {
	fake := NewFakePredictor()

	out, err := fake.Predict(context.Background(), []protein.Sequence{"MKVL"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	rec, err := structure.Parse(out[0])
	require.NoError(t, err)
	assert.Equal(t, "MKVL", rec.Sequence())
	assert.InDelta(t, 90.0, rec.MeanBFactor(), 1e-9)

	cas := rec.AlphaCarbons()
	require.Len(t, cas, 4)
	assert.InDelta(t, protein.ResidueSpacing, cas[1].X-cas[0].X, 1e-3)

	assert.Equal(t, 1, fake.CallCount())
}

func TestFakePredictorError(t *testing.T) {
	fake := NewFakePredictor()
	fake.Err = errors.New(errors.ErrCodePredictorFailed, "boom")

	_, err := fake.Predict(context.Background(), []protein.Sequence{"MKV"})
	assert.True(t, errors.IsCode(err, errors.ErrCodePredictorFailed))
	assert.Error(t, fake.Healthy(context.Background()))
}
