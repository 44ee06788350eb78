package types

// Status is the engine's discrete lifecycle status.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusScanning Status = "scanning"
	StatusWatching Status = "watching"
	StatusError    Status = "error"
)

// IndexerState is a user-visible lifecycle snapshot emitted on every
// transition. Err is set only when Status is StatusError.
type IndexerState struct {
	Status         Status `json:"status"`
	Message        string `json:"message"`
	GitBranch      string `json:"gitBranch,omitempty"`
	TotalFiles     int    `json:"totalFiles,omitempty"`
	TotalChunks    int    `json:"totalChunks,omitempty"`
	LastSyncMillis int64  `json:"lastSyncEpochMs,omitempty"`
	Err            error  `json:"-"`
}

// ScanResult summarizes one reconciliation pass. Success means the errors
// list is empty.
type ScanResult struct {
	Success        bool
	FilesProcessed int
	ChunksIndexed  int
	Errors         []string
}
