package replay

import (
	"time"

	"github.com/okian/sentimoji/internal/domain/fusion"
)

// Config holds configuration for a replay run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumComments int           // Number of comments to generate when Input is empty
	BatchSize   int           // Comments per batch request
	TopN        int           // Number of board entries to fetch
	Workers     int           // Number of concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	Input       string        // Optional JSON file of comments to replay
	OutputFile  string        // Output file for analyses
	LogFile     string        // Log file for run output
	Verbose     bool          // Enable verbose logging
}

// BatchRequest is the body of POST /api/analyze/batch.
type BatchRequest struct {
	Comments []fusion.Comment `json:"comments"`
}

// BatchResponse is the reply of POST /api/analyze/batch.
type BatchResponse struct {
	Results []fusion.Analysis `json:"results"`
}

// Stats holds run statistics.
type Stats struct {
	CommentsLoaded   int
	BatchesSubmitted int
	BatchesRejected  int // answered 429
	BatchesFailed    int
	CommentsAnalyzed int
	Degraded         int
	Errors           int
	Labels           map[fusion.Label]int
	BoardEntries     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
