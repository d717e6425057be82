// Package descriptor turns cached structures into fixed-shape numeric
// descriptors: flattened pairwise distances and flattened consecutive
// rotation quaternions.  Descriptors are deterministic per sequence digest,
// which makes them ideal memoization targets.
package descriptor

import (
	"context"
	"time"

	"github.com/foldbank/foldbank/internal/domain/geometry"
	"github.com/foldbank/foldbank/internal/domain/structure"
	"github.com/foldbank/foldbank/internal/infrastructure/database/redis"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/prometheus"
	"github.com/foldbank/foldbank/pkg/types/protein"
)

// StructureLoader resolves a raw sequence to its cached structure.  The
// fold service's Load satisfies it; descriptors never trigger prediction.
type StructureLoader interface {
	Load(ctx context.Context, raw string) (*LoadedStructure, error)
}

// LoadedStructure is the loader's result: a digest plus the parsed record.
type LoadedStructure struct {
	Sequence  protein.Sequence
	Digest    string
	Structure *structure.StructureRecord
}

// Descriptors carries every geometric descriptor for one sequence.
type Descriptors struct {
	Digest       string    `json:"digest"`
	ResidueCount int       `json:"residue_count"`
	Distances    []float64 `json:"distances"`
	Quaternions  []float64 `json:"quaternions"`
	MaxLength    float64   `json:"max_length"`
}

const (
	kindDistances   = "distances"
	kindQuaternions = "quaternions"
	kindAll         = "descriptors"
)

// Service computes descriptors from cached structures, memoizing the
// results in redis when a cache is configured.
type Service struct {
	loader   StructureLoader
	cache    redis.Cache
	cacheTTL time.Duration
	metrics  *prometheus.PipelineMetrics
	logger   logging.Logger
}

// NewService creates a descriptor Service.  cache may be nil, in which case
// every request recomputes.
func NewService(
	loader StructureLoader,
	cache redis.Cache,
	cacheTTL time.Duration,
	metrics *prometheus.PipelineMetrics,
	logger logging.Logger,
) *Service {
	return &Service{
		loader:   loader,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger.Named("descriptor"),
	}
}

// Compute returns the full descriptor set for a sequence whose structure is
// already cached.  A structure miss propagates as ErrCodeStructureNotFound.
func (s *Service) Compute(ctx context.Context, raw string) (*Descriptors, error) {
	loaded, err := s.loader.Load(ctx, raw)
	if err != nil {
		return nil, err
	}

	if s.cache == nil {
		return s.compute(loaded)
	}

	key := "descriptors:" + loaded.Digest
	var out Descriptors
	if err := s.cache.Get(ctx, key, &out); err == nil {
		s.metrics.DescriptorCacheHits.WithLabelValues(kindAll).Inc()
		return &out, nil
	} else if err != redis.ErrCacheMiss {
		s.logger.Warn("descriptor cache read failed",
			logging.String("digest", loaded.Digest), logging.Err(err))
	}

	s.metrics.DescriptorCacheMisses.WithLabelValues(kindAll).Inc()
	err = s.cache.GetOrSet(ctx, key, &out, s.cacheTTL,
		func(ctx context.Context) (interface{}, error) {
			return s.compute(loaded)
		})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// compute derives every descriptor from the parsed structure.
func (s *Service) compute(loaded *LoadedStructure) (*Descriptors, error) {
	cas := loaded.Structure.AlphaCarbons()

	start := time.Now()
	distances := geometry.Flatten(geometry.DistanceMatrix(cas))
	s.metrics.DescriptorDuration.WithLabelValues(kindDistances).
		Observe(time.Since(start).Seconds())

	start = time.Now()
	tangents, err := geometry.TangentVectors(cas)
	if err != nil {
		return nil, err
	}
	quats, err := geometry.ConsecutiveQuaternions(tangents)
	if err != nil {
		return nil, err
	}
	s.metrics.DescriptorDuration.WithLabelValues(kindQuaternions).
		Observe(time.Since(start).Seconds())

	return &Descriptors{
		Digest:       loaded.Digest,
		ResidueCount: len(cas),
		Distances:    distances,
		Quaternions:  geometry.FlattenQuaternions(quats),
		MaxLength:    protein.MaxPhysicalLength(len(cas)),
	}, nil
}

// Distances returns only the flattened distance descriptor.
func (s *Service) Distances(ctx context.Context, raw string) ([]float64, error) {
	d, err := s.Compute(ctx, raw)
	if err != nil {
		return nil, err
	}
	return d.Distances, nil
}

// Quaternions returns only the flattened quaternion descriptor.
func (s *Service) Quaternions(ctx context.Context, raw string) ([]float64, error) {
	d, err := s.Compute(ctx, raw)
	if err != nil {
		return nil, err
	}
	return d.Quaternions, nil
}
