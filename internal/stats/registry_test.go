package stats

import "testing"

func TestRegistryCreatesEntryOnFirstReport(t *testing.T) {
	reg := NewRegistry()

	if names := reg.Names(); len(names) != 0 {
		t.Fatalf("Names() on empty registry = %v, want empty", names)
	}

	counter := NewResultsCounter()
	counter.PutKey("200")

	if err := reg.MergeReport("requests", counter.ToSnapshot()); err != nil {
		t.Fatalf("MergeReport() error = %v", err)
	}

	names := reg.Names()
	if len(names) != 1 || names[0] != "requests" {
		t.Errorf("Names() = %v, want [requests]", names)
	}
}

func TestRegistryMergesSubsequentReportsFromMultipleSlaves(t *testing.T) {
	reg := NewRegistry()

	slaveA := NewHistogram(1000, nil)
	slaveA.Put(10)
	slaveB := NewHistogram(1000, nil)
	slaveB.Put(20)

	if err := reg.MergeReport("latency", slaveA.ToSnapshot()); err != nil {
		t.Fatalf("MergeReport() error = %v", err)
	}
	if err := reg.MergeReport("latency", slaveB.ToSnapshot()); err != nil {
		t.Fatalf("MergeReport() error = %v", err)
	}

	rep, ok := reg.Get("latency")
	if !ok {
		t.Fatal("Get(latency) not found")
	}
	if rep.Cumulative.Length() != 2 {
		t.Errorf("cumulative length = %d, want 2", rep.Cumulative.Length())
	}
}

func TestRegistryNextWindowClearsIntervalsOnly(t *testing.T) {
	reg := NewRegistry()
	counter := NewResultsCounter()
	counter.PutKey("200")
	if err := reg.MergeReport("requests", counter.ToSnapshot()); err != nil {
		t.Fatalf("MergeReport() error = %v", err)
	}

	snaps := reg.NextWindow()
	if snaps["requests"].Fields["total"] != int64(1) {
		t.Errorf("window snapshot total = %v, want 1", snaps["requests"].Fields["total"])
	}

	summaries := reg.CumulativeSummaries()
	if summaries["requests"]["total"] != int64(1) {
		t.Errorf("cumulative summary total = %v, want 1", summaries["requests"]["total"])
	}

	rep, _ := reg.Get("requests")
	if rep.Interval.Length() != 0 {
		t.Errorf("interval length after NextWindow() = %d, want 0", rep.Interval.Length())
	}
}

func TestRegistryUnknownSketchKindPropagatesError(t *testing.T) {
	reg := NewRegistry()
	snap := Snapshot{Type: "NotAThing", Fields: map[string]interface{}{}}
	if err := reg.MergeReport("mystery", snap); err == nil {
		t.Error("MergeReport() with unknown kind = nil, want error")
	}
}
