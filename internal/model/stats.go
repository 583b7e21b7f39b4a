package model

import "time"

// SummaryStats holds aggregated activity and savings over a time window.
type SummaryStats struct {
	Sessions   int
	Prompts    int
	Replies    int
	Failures   int
	ActiveDays int

	Totals EcoMetrics

	// Share of baseline tokens avoided, 0..1. Zero when no baseline exists.
	Reduction float64

	// Per active day
	PromptsPerDay     float64
	TokensSavedPerDay int64
	CarbonPerDay      float64
}

// DailyStats holds one calendar day of activity.
type DailyStats struct {
	Date     time.Time
	Prompts  int
	Replies  int
	Failures int
	Totals   EcoMetrics
}

// HourlyStats holds prompt activity for one hour of the day.
type HourlyStats struct {
	Hour        int
	Prompts     int
	TokensSaved int64
}
