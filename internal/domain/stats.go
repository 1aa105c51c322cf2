package domain

// Stats contains dashboard statistics
type Stats struct {
	Batches  BatchStats   `json:"batches"`
	Outcomes OutcomeStats `json:"outcomes"`
	System   SystemStats  `json:"system"`
}

// BatchStats contains batch-related statistics
type BatchStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Paused    int `json:"paused"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// OutcomeStats contains outcome-related statistics
type OutcomeStats struct {
	TotalProcessed int `json:"total_processed"`
	EmailsFound    int `json:"emails_found"`
	Today          int `json:"today"`

	// OracleCalls and CallsSaved together express the early-stopping
	// efficiency across all lookups.
	OracleCalls int `json:"oracle_calls"`
	CallsSaved  int `json:"calls_saved"`
}

// SystemStats contains process/host gauges for the dashboard
type SystemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
}
