package storage

import "time"

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	DomainsDiscovered int       `json:"domains_discovered"`
	VisitsSpawned     int       `json:"visits_spawned"`
	VisitsDropped     int       `json:"visits_dropped"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesBlocked      int       `json:"pages_blocked"`
	PagesFailed       int       `json:"pages_failed"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
