package replay

import "time"

// HTTP status code constants.
const (
	StatusOK = 200
)

// Runner configuration constants.
const (
	WorkerChannelMultiplier = 2
	PercentageMultiplier    = 100
	progressInterval        = time.Second
	defaultTopN             = 10
)

// Service routes.
const (
	healthPath = "/api/health"
	batchPath  = "/api/analyze/batch"
	topPath    = "/api/emoji/top"
)
