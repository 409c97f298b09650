package models

import "time"

// RunStats summarizes one crawl run. It is persisted next to the exported
// data and feeds the completion email.
type RunStats struct {
	StartTime          time.Time `json:"start_time"`
	FinishTime         time.Time `json:"finish_time"`
	ItemScrapedCount   int       `json:"item_scraped_count"`
	ElapsedTimeSeconds float64   `json:"elapsed_time_seconds"`
	RequestBytes       int64     `json:"request_bytes"`
	ResponseBytes      int64     `json:"response_bytes"`
	RequestCount       int       `json:"request_count"`
	SuccessCount       int       `json:"success_count"`
	ErrorCount         int       `json:"error_count"`

	FailedURLs   []string       `json:"failed_urls,omitempty"`
	ErrorsByType map[string]int `json:"errors_by_type,omitempty"`
}
