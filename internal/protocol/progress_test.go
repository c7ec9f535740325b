package protocol

import (
	"encoding/json"
	"testing"

	"github.com/larsson/nodeload/internal/stats"
)

func TestStatReportJSONRoundTrip(t *testing.T) {
	acc := stats.NewAccumulator()
	acc.Put(1)
	acc.Put(2)
	acc.Put(3)

	report := StatReport{
		SlaveID: "slave-3",
		Stats: []StatEntry{
			{Name: "bytesSent", AddToHTTPReport: true, Interval: acc.ToSnapshot()},
		},
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got StatReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.SlaveID != report.SlaveID {
		t.Errorf("SlaveID = %q, want %q", got.SlaveID, report.SlaveID)
	}
	if len(got.Stats) != 1 {
		t.Fatalf("len(Stats) = %d, want 1", len(got.Stats))
	}
	if got.Stats[0].Name != "bytesSent" || !got.Stats[0].AddToHTTPReport {
		t.Errorf("Stats[0] = %+v, want Name=bytesSent AddToHTTPReport=true", got.Stats[0])
	}
	if got.Stats[0].Interval.Type != "Accumulator" {
		t.Errorf("Interval.Type = %q, want Accumulator", got.Stats[0].Interval.Type)
	}

	// The round-tripped snapshot must still merge cleanly into a fresh
	// sketch of its own kind, proving the flattened encoding preserved
	// every field Accumulator.Merge needs.
	fresh := stats.NewAccumulator()
	if err := fresh.Merge(got.Stats[0].Interval); err != nil {
		t.Fatalf("Merge after round trip: %v", err)
	}
	if fresh.Length() != 3 {
		t.Errorf("Length() after merge = %d, want 3", fresh.Length())
	}
}

func TestStatReportEmptyStatsRoundTrip(t *testing.T) {
	report := StatReport{SlaveID: "slave-1"}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got StatReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.SlaveID != "slave-1" || len(got.Stats) != 0 {
		t.Errorf("got %+v, want SlaveID=slave-1 with no stats", got)
	}
}
