package stats

import "testing"

func TestReportableNextResetsIntervalOnly(t *testing.T) {
	r, err := NewReportable("latency", "Histogram", map[string]interface{}{"numBuckets": 100})
	if err != nil {
		t.Fatalf("NewReportable() error = %v", err)
	}

	r.Put(10)
	r.Put(20)

	snap := r.Next()
	if snap.Fields["length"] != int64(2) {
		t.Errorf("first Next() length = %v, want 2", snap.Fields["length"])
	}
	if r.Interval.Length() != 0 {
		t.Errorf("interval length after Next() = %d, want 0", r.Interval.Length())
	}
	if r.Cumulative.Length() != 2 {
		t.Errorf("cumulative length after Next() = %d, want 2", r.Cumulative.Length())
	}

	// A quiet window produces an empty snapshot without disturbing state
	// further.
	quiet := r.Next()
	if quiet.Fields["length"] != int64(0) {
		t.Errorf("quiet Next() length = %v, want 0", quiet.Fields["length"])
	}

	r.Put(5)
	snap = r.Next()
	if snap.Fields["length"] != int64(1) {
		t.Errorf("second Next() length = %v, want 1", snap.Fields["length"])
	}
	if r.Cumulative.Length() != 3 {
		t.Errorf("cumulative length = %d, want 3", r.Cumulative.Length())
	}
}

func TestReportableMergeFoldsIntoBothViews(t *testing.T) {
	master, err := NewReportable("requests", "ResultsCounter", nil)
	if err != nil {
		t.Fatalf("NewReportable() error = %v", err)
	}

	slave := NewResultsCounter()
	slave.PutKey("200")
	slave.PutKey("200")

	if err := master.Merge(slave.ToSnapshot()); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if master.Interval.Length() != 2 {
		t.Errorf("interval length = %d, want 2", master.Interval.Length())
	}
	if master.Cumulative.Length() != 2 {
		t.Errorf("cumulative length = %d, want 2", master.Cumulative.Length())
	}

	// A second report in the same window accumulates into the interval too.
	slave2 := NewResultsCounter()
	slave2.PutKey("500")
	if err := master.Merge(slave2.ToSnapshot()); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if master.Interval.Length() != 3 {
		t.Errorf("interval length after second merge = %d, want 3", master.Interval.Length())
	}
}

func TestReportableMergeRejectsWrongKind(t *testing.T) {
	r, err := NewReportable("latency", "Histogram", nil)
	if err != nil {
		t.Fatalf("NewReportable() error = %v", err)
	}
	if err := r.Merge(Snapshot{Type: "Peak"}); err == nil {
		t.Error("Merge() with mismatched kind = nil, want error")
	}
}
