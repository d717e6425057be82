package fold

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldbank/foldbank/internal/infrastructure/database/postgres"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/prometheus"
	"github.com/foldbank/foldbank/internal/infrastructure/storage/fs"
	"github.com/foldbank/foldbank/internal/intelligence/esmfold"
	"github.com/foldbank/foldbank/internal/testutil"
	"github.com/foldbank/foldbank/pkg/errors"
	"github.com/foldbank/foldbank/pkg/types/protein"
)

type fakeRecorder struct {
	mu      sync.Mutex
	records []*postgres.PredictionRecord
	err     error
}

func (f *fakeRecorder) Insert(ctx context.Context, rec *postgres.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func testMetrics(t *testing.T) *prometheus.PipelineMetrics {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(
		prometheus.CollectorConfig{Namespace: "foldbank"}, logging.NewNopLogger())
	require.NoError(t, err)
	return prometheus.NewPipelineMetrics(collector)
}

func newTestService(t *testing.T) (*Service, *esmfold.FakePredictor, *fakeRecorder) {
	t.Helper()
	store, err := fs.NewStore(fs.Config{Root: t.TempDir()}, logging.NewNopLogger())
	require.NoError(t, err)
	predictor := esmfold.NewFakePredictor()
	recorder := &fakeRecorder{}
	svc := NewService(store, predictor, recorder, testMetrics(t), logging.NewNopLogger(),
		Config{Model: "esmfold_v1", Backend: "fs", ParseConcurrency: 2})
	return svc, predictor, recorder
}

func TestEnsureEmptyBatch(t *testing.T) {
	svc, predictor, _ := newTestService(t)

	results, err := svc.Ensure(context.Background(), EnsureInput{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, predictor.CallCount())
}

func TestEnsurePredictsMissesOnce(t *testing.T) {
	svc, predictor, _ := newTestService(t)
	ctx := context.Background()

	results, err := svc.Ensure(ctx, EnsureInput{Sequences: []string{"MKV", "ACDEF"}})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, 1, predictor.CallCount(), "all misses must coalesce into one call")
	assert.Len(t, predictor.Calls[0], 2)

	for _, r := range results {
		assert.False(t, r.FromCache)
		require.NotNil(t, r.Structure)
	}
	assert.Equal(t, "MKV", results[0].Structure.Sequence())
	assert.Equal(t, "ACDEF", results[1].Structure.Sequence())
}

func TestEnsureSecondCallHitsCache(t *testing.T) {
	svc, predictor, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ensure(ctx, EnsureInput{Sequences: []string{"MKV"}})
	require.NoError(t, err)

	results, err := svc.Ensure(ctx, EnsureInput{Sequences: []string{"MKV"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].FromCache)
	assert.Equal(t, 1, predictor.CallCount(), "cached sequence must not be re-predicted")
}

func TestEnsurePredictsOnlyUncached(t *testing.T) {
	svc, predictor, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ensure(ctx, EnsureInput{Sequences: []string{"MKV"}})
	require.NoError(t, err)

	results, err := svc.Ensure(ctx, EnsureInput{Sequences: []string{"MKV", "ACDEF", "WYH"}})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Equal(t, 2, predictor.CallCount())
	assert.Equal(t, []protein.Sequence{"ACDEF", "WYH"}, predictor.Calls[1],
		"only uncached sequences go to the predictor")

	assert.True(t, results[0].FromCache)
	assert.False(t, results[1].FromCache)
	assert.False(t, results[2].FromCache)
}

func TestEnsureDeduplicatesBatch(t *testing.T) {
	svc, predictor, _ := newTestService(t)

	results, err := svc.Ensure(context.Background(),
		EnsureInput{Sequences: []string{"MKV", "mkv", " MKV "}})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Equal(t, 1, predictor.CallCount())
	assert.Len(t, predictor.Calls[0], 1, "identical sequences fold once")

	for _, r := range results {
		assert.Equal(t, results[0].Digest, r.Digest)
		assert.Same(t, results[0].Structure, r.Structure)
	}
}

func TestEnsureInvalidSequenceFailsBeforePredicting(t *testing.T) {
	svc, predictor, _ := newTestService(t)

	_, err := svc.Ensure(context.Background(),
		EnsureInput{Sequences: []string{"MKV", "MKZ9"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSequenceInvalid))
	assert.Zero(t, predictor.CallCount(), "validation failures must precede prediction")
}

func TestEnsurePredictorFailure(t *testing.T) {
	svc, predictor, _ := newTestService(t)
	predictor.Err = errors.New(errors.ErrCodePredictorFailed, "gpu on fire")

	_, err := svc.Ensure(context.Background(), EnsureInput{Sequences: []string{"MKV"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePredictorFailed))

	// nothing persisted, next attempt re-predicts
	predictor.Err = nil
	results, err := svc.Ensure(context.Background(), EnsureInput{Sequences: []string{"MKV"}})
	require.NoError(t, err)
	assert.False(t, results[0].FromCache)
}

func TestEnsureRecordsMetadata(t *testing.T) {
	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ensure(ctx, EnsureInput{Sequences: []string{"MKVLAT"}})
	require.NoError(t, err)

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.Equal(t, protein.Sequence("MKVLAT").Digest(), rec.SequenceDigest)
	assert.Equal(t, 6, rec.SequenceLength)
	assert.Equal(t, "esmfold_v1", rec.Model)
	assert.Equal(t, rec.SequenceDigest+".pdb", rec.ArtifactKey)
	assert.Equal(t, 6, rec.ResidueCount)
	assert.InDelta(t, 90.0, rec.MeanPLDDT, 1e-9)

	// cache hit writes no further metadata
	_, err = svc.Ensure(ctx, EnsureInput{Sequences: []string{"MKVLAT"}})
	require.NoError(t, err)
	assert.Len(t, recorder.records, 1)
}

func TestEnsureRecorderFailureIsNonFatal(t *testing.T) {
	store, err := fs.NewStore(fs.Config{Root: t.TempDir()}, logging.NewNopLogger())
	require.NoError(t, err)
	recorder := &fakeRecorder{err: errors.New(errors.ErrCodeDatabaseError, "registry down")}
	logger := testutil.NewMockLogger()
	svc := NewService(store, esmfold.NewFakePredictor(), recorder, testMetrics(t), logger,
		Config{Model: "esmfold_v1", Backend: "fs", ParseConcurrency: 2})

	results, err := svc.Ensure(context.Background(), EnsureInput{Sequences: []string{"MKV"}})
	require.NoError(t, err, "metadata registry failures must not fail the fold")
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].Structure)
	assert.True(t, logger.HasMessage("warn", "prediction metadata insert failed"))
}

func TestLoadNeverPredicts(t *testing.T) {
	svc, predictor, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Load(ctx, "MKV")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureNotFound))
	assert.Zero(t, predictor.CallCount())

	_, err = svc.Ensure(ctx, EnsureInput{Sequences: []string{"MKV"}})
	require.NoError(t, err)

	result, err := svc.Load(ctx, "MKV")
	require.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.Equal(t, "MKV", result.Structure.Sequence())
	assert.Equal(t, 1, predictor.CallCount())
}

func TestLoadInvalidSequence(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Load(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSequenceEmpty))
}
