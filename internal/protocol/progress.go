package protocol

import "github.com/larsson/nodeload/internal/stats"

// StatEntry is one named statistic inside a StatReport.
type StatEntry struct {
	Name            string         `json:"name"`
	AddToHTTPReport bool           `json:"addToHttpReport"`
	Interval        stats.Snapshot `json:"interval"`
}

// StatReport is the body a slave POSTs to the master's /remote/progress
// every report interval.
type StatReport struct {
	SlaveID string      `json:"slaveId"`
	Stats   []StatEntry `json:"stats"`
}
