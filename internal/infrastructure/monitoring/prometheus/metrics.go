package prometheus

// PipelineMetrics holds all metrics emitted by the fold/descriptor pipeline.
type PipelineMetrics struct {
	// Structure cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	ArtifactBytes    HistogramVec

	// Predictor
	PredictRequestsTotal CounterVec
	PredictDuration      HistogramVec
	PredictBatchSize     HistogramVec

	// Descriptor engine
	DescriptorDuration    HistogramVec
	DescriptorCacheHits   CounterVec
	DescriptorCacheMisses CounterVec

	// Errors by module prefix
	ErrorsTotal CounterVec
}

// Prediction latency is dominated by GPU inference; buckets span seconds to
// many minutes.
var DefaultPredictDurationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800}

// Descriptor computation is in-memory geometry; sub-second buckets.
var DefaultDescriptorDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5}

var DefaultBatchSizeBuckets = []float64{1, 2, 4, 8, 16, 32, 64}

var DefaultArtifactSizeBuckets = []float64{1 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20, 4 << 20}

// NewPipelineMetrics registers all pipeline metrics on the collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	m := &PipelineMetrics{}

	m.CacheHitsTotal = collector.RegisterCounter("structure_cache_hits_total",
		"Structure cache hits", "backend")
	m.CacheMissesTotal = collector.RegisterCounter("structure_cache_misses_total",
		"Structure cache misses", "backend")
	m.ArtifactBytes = collector.RegisterHistogram("structure_artifact_bytes",
		"Size of persisted structure artifacts", DefaultArtifactSizeBuckets, "backend")

	m.PredictRequestsTotal = collector.RegisterCounter("predict_requests_total",
		"Predictor batch calls", "model", "status")
	m.PredictDuration = collector.RegisterHistogram("predict_duration_seconds",
		"Predictor batch call duration", DefaultPredictDurationBuckets, "model")
	m.PredictBatchSize = collector.RegisterHistogram("predict_batch_size",
		"Sequences per predictor batch", DefaultBatchSizeBuckets, "model")

	m.DescriptorDuration = collector.RegisterHistogram("descriptor_duration_seconds",
		"Descriptor computation duration", DefaultDescriptorDurationBuckets, "kind")
	m.DescriptorCacheHits = collector.RegisterCounter("descriptor_cache_hits_total",
		"Descriptor memoization hits", "kind")
	m.DescriptorCacheMisses = collector.RegisterCounter("descriptor_cache_misses_total",
		"Descriptor memoization misses", "kind")

	m.ErrorsTotal = collector.RegisterCounter("errors_total",
		"Errors by module code prefix", "module")

	return m
}
