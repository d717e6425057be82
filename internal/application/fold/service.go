// Package fold orchestrates the structure cache: sequence validation,
// digest lookup, batch prediction of misses, and artifact persistence.
package fold

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foldbank/foldbank/internal/domain/structure"
	"github.com/foldbank/foldbank/internal/infrastructure/database/postgres"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/prometheus"
	"github.com/foldbank/foldbank/internal/infrastructure/storage"
	"github.com/foldbank/foldbank/internal/intelligence/esmfold"
	"github.com/foldbank/foldbank/pkg/errors"
	"github.com/foldbank/foldbank/pkg/types/protein"
)

// PredictionRecorder persists prediction metadata.  Optional; a nil recorder
// disables the registry without affecting the cache.
type PredictionRecorder interface {
	Insert(ctx context.Context, rec *postgres.PredictionRecord) error
}

// EnsureInput is a batch of raw sequences to make resident in the cache.
type EnsureInput struct {
	Sequences []string
}

// StructureResult pairs one input sequence with its parsed structure.
type StructureResult struct {
	Sequence  protein.Sequence
	Digest    string
	Structure *structure.StructureRecord
	FromCache bool
}

// Config holds fold pipeline tunables.
type Config struct {
	// Model names the predictor model, recorded in the metadata registry.
	Model string
	// Backend labels cache metrics with the artifact store kind.
	Backend string
	// ParseConcurrency bounds parallel artifact parsing.  Zero means 4.
	ParseConcurrency int
}

// Service is the structure cache orchestrator.
type Service struct {
	store     storage.ArtifactStore
	predictor esmfold.Predictor
	recorder  PredictionRecorder
	metrics   *prometheus.PipelineMetrics
	logger    logging.Logger
	cfg       Config
}

// NewService creates a fold Service.  recorder may be nil.
func NewService(
	store storage.ArtifactStore,
	predictor esmfold.Predictor,
	recorder PredictionRecorder,
	metrics *prometheus.PipelineMetrics,
	logger logging.Logger,
	cfg Config,
) *Service {
	if cfg.ParseConcurrency <= 0 {
		cfg.ParseConcurrency = 4
	}
	return &Service{
		store:     store,
		predictor: predictor,
		recorder:  recorder,
		metrics:   metrics,
		logger:    logger.Named("fold"),
		cfg:       cfg,
	}
}

// Ensure makes every input sequence's structure resident in the cache and
// returns the parsed structures in input order.
//
// The whole batch is validated up front; one bad sequence fails the call
// before any prediction happens.  Cache misses are coalesced into a single
// predictor call, duplicates included only once.  Artifacts are persisted
// before results are returned, so a crash after Ensure never loses paid-for
// predictions.
func (s *Service) Ensure(ctx context.Context, input EnsureInput) ([]*StructureResult, error) {
	if len(input.Sequences) == 0 {
		return nil, nil
	}

	results := make([]*StructureResult, len(input.Sequences))
	for i, raw := range input.Sequences {
		seq, err := protein.NewSequence(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeUnknown,
				"sequence at index "+strconv.Itoa(i))
		}
		results[i] = &StructureResult{Sequence: seq, Digest: seq.Digest()}
	}

	// Dedup by digest so a repeated sequence costs one lookup and at most
	// one prediction.
	byDigest := make(map[string][]*StructureResult)
	var order []string
	for _, r := range results {
		if _, seen := byDigest[r.Digest]; !seen {
			order = append(order, r.Digest)
		}
		byDigest[r.Digest] = append(byDigest[r.Digest], r)
	}

	artifacts := make(map[string][]byte, len(order))
	var misses []string
	for _, digest := range order {
		ok, err := s.store.Exists(ctx, digest)
		if err != nil {
			return nil, err
		}
		if ok {
			s.metrics.CacheHitsTotal.WithLabelValues(s.cfg.Backend).Inc()
			for _, r := range byDigest[digest] {
				r.FromCache = true
			}
		} else {
			s.metrics.CacheMissesTotal.WithLabelValues(s.cfg.Backend).Inc()
			misses = append(misses, digest)
		}
	}

	if len(misses) > 0 {
		if err := s.predictMisses(ctx, misses, byDigest, artifacts); err != nil {
			return nil, err
		}
	}

	if err := s.parseAll(ctx, order, byDigest, artifacts); err != nil {
		return nil, err
	}
	return results, nil
}

// predictMisses folds every missing digest in one predictor call and
// persists each artifact before returning.
func (s *Service) predictMisses(ctx context.Context, misses []string, byDigest map[string][]*StructureResult, artifacts map[string][]byte) error {
	sequences := make([]protein.Sequence, len(misses))
	for i, digest := range misses {
		sequences[i] = byDigest[digest][0].Sequence
	}

	s.logger.Info("predicting cache misses",
		logging.Int("batch_size", len(sequences)))
	s.metrics.PredictBatchSize.WithLabelValues(s.cfg.Model).Observe(float64(len(sequences)))

	start := time.Now()
	pdbs, err := s.predictor.Predict(ctx, sequences)
	if err != nil {
		s.metrics.PredictRequestsTotal.WithLabelValues(s.cfg.Model, "error").Inc()
		s.countError(err)
		return err
	}
	s.metrics.PredictRequestsTotal.WithLabelValues(s.cfg.Model, "ok").Inc()
	s.metrics.PredictDuration.WithLabelValues(s.cfg.Model).Observe(time.Since(start).Seconds())

	if len(pdbs) != len(misses) {
		return errors.Newf(errors.ErrCodePredictorShape,
			"predictor returned %d structures for %d misses", len(pdbs), len(misses))
	}

	for i, digest := range misses {
		if err := s.store.Put(ctx, digest, pdbs[i]); err != nil {
			s.countError(err)
			return err
		}
		s.metrics.ArtifactBytes.WithLabelValues(s.cfg.Backend).Observe(float64(len(pdbs[i])))
		artifacts[digest] = pdbs[i]
	}
	return nil
}

// countError bumps the per-module error counter keyed by the error code
// prefix.
func (s *Service) countError(err error) {
	s.metrics.ErrorsTotal.WithLabelValues(errors.ModuleForCode(errors.GetCode(err))).Inc()
}

// parseAll loads and parses every digest's artifact, bounded by the
// configured concurrency.  Freshly predicted artifacts skip the store read.
func (s *Service) parseAll(ctx context.Context, order []string, byDigest map[string][]*StructureResult, artifacts map[string][]byte) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ParseConcurrency)

	for _, digest := range order {
		digest := digest
		g.Go(func() error {
			data, ok := artifacts[digest]
			if !ok {
				var err error
				data, err = s.store.Get(gctx, digest)
				if err != nil {
					return err
				}
			}

			rec, err := structure.Parse(data)
			if err != nil {
				wrapped := errors.Wrap(err, errors.ErrCodeArtifactCorrupt,
					"artifact for digest "+digest)
				s.countError(wrapped)
				return wrapped
			}

			group := byDigest[digest]
			if got, want := len(rec.Residues), len(group[0].Sequence); got != want {
				return errors.Newf(errors.ErrCodePredictorShape,
					"artifact for digest %s has %d residues, sequence has %d",
					digest, got, want)
			}

			for _, r := range group {
				r.Structure = rec
			}

			if s.recorder != nil && !group[0].FromCache {
				s.record(gctx, group[0], rec)
			}
			return nil
		})
	}
	return g.Wait()
}

// record writes the metadata row for a fresh prediction.  Registry failures
// are logged, not propagated; metadata is advisory, the artifact is truth.
func (s *Service) record(ctx context.Context, r *StructureResult, rec *structure.StructureRecord) {
	err := s.recorder.Insert(ctx, &postgres.PredictionRecord{
		SequenceDigest: r.Digest,
		SequenceLength: len(r.Sequence),
		Model:          s.cfg.Model,
		ArtifactKey:    storage.ObjectName(r.Digest),
		ResidueCount:   len(rec.Residues),
		MeanPLDDT:      rec.MeanBFactor(),
	})
	if err != nil {
		s.logger.Warn("prediction metadata insert failed",
			logging.String("digest", r.Digest), logging.Err(err))
	}
}

// Load returns the cached structure for a sequence.  It never predicts: a
// miss is ErrCodeStructureNotFound.
func (s *Service) Load(ctx context.Context, raw string) (*StructureResult, error) {
	seq, err := protein.NewSequence(raw)
	if err != nil {
		return nil, err
	}
	digest := seq.Digest()

	data, err := s.store.Get(ctx, digest)
	if err != nil {
		return nil, err
	}

	rec, err := structure.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactCorrupt,
			"artifact for digest "+digest)
	}

	return &StructureResult{
		Sequence:  seq,
		Digest:    digest,
		Structure: rec,
		FromCache: true,
	}, nil
}
