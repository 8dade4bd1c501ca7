package audit

import "time"

// BreakdownDimension defines valid group-by dimensions.
type BreakdownDimension string

const (
	// BreakdownByPhase groups by phase name.
	BreakdownByPhase BreakdownDimension = "phase"

	// BreakdownByErrorType groups by failure type.
	BreakdownByErrorType BreakdownDimension = "error_type"

	// BreakdownByBackend groups by backend variant.
	BreakdownByBackend BreakdownDimension = "backend_variant"
)

// ValidBreakdownDimensions is the set of allowed group-by values.
var ValidBreakdownDimensions = map[BreakdownDimension]bool{
	BreakdownByPhase:     true,
	BreakdownByErrorType: true,
	BreakdownByBackend:   true,
}

// BreakdownFilter controls breakdown query parameters.
type BreakdownFilter struct {
	GroupBy   BreakdownDimension
	Limit     int
	StartTime *time.Time
	EndTime   *time.Time
}

// BreakdownEntry holds aggregated stats for a single dimension value.
type BreakdownEntry struct {
	Dimension     string  `json:"dimension"`
	Count         int     `json:"count"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// Overview holds aggregate statistics for the generation log.
type Overview struct {
	TotalCalls    int     `json:"total_calls"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	AvgCardCount  float64 `json:"avg_card_count"`
	ErrorCount    int     `json:"error_count"`
}
