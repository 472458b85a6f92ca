package metrics

// Operation label values shared by the crossfilter, views and loader packages.
const (
	// OpAggregate is a full Result computation.
	OpAggregate = "aggregate"
	// OpDetail is a detail panel rollup.
	OpDetail = "detail"
	// OpLoad is a dataset load.
	OpLoad = "load"
	// OpCacheGet is a detail cache lookup.
	OpCacheGet = "cache_get"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusHit     = "hit"
	StatusMiss    = "miss"
)

// Histogram bucket configuration constants.
const (
	// BucketStart100us is the starting bucket for 0.1ms histograms (0.1ms to ~400ms range).
	BucketStart100us = 0.0001
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)
