package stats

import "fmt"

// NewFromType constructs a fresh, empty Sketch for the given wire-level type
// name, honoring any constructor parameters present in params (currently
// only Histogram's numBuckets/buckets and percentiles). It returns
// ErrUnknownSketchKind for any name not in the table below.
func NewFromType(kind string, params map[string]interface{}) (Sketch, error) {
	switch kind {
	case "Histogram":
		numBuckets := 0
		if v, ok := params["numBuckets"]; ok {
			numBuckets = int(toFloat(v))
		} else if v, ok := params["buckets"]; ok {
			numBuckets = int(toFloat(v))
		}
		var percentiles []float64
		if raw, ok := params["percentiles"]; ok {
			if items, ok := raw.([]interface{}); ok {
				percentiles = make([]float64, 0, len(items))
				for _, it := range items {
					percentiles = append(percentiles, toFloat(it))
				}
			}
		}
		return NewHistogram(numBuckets, percentiles), nil
	case "Accumulator":
		return NewAccumulator(), nil
	case "ResultsCounter":
		return NewResultsCounter(), nil
	case "Uniques":
		return NewUniques(), nil
	case "Peak":
		return NewPeak(), nil
	case "Rate":
		return NewRate(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSketchKind, kind)
	}
}

// NewFromSnapshot constructs a Sketch of the snapshot's own kind and
// immediately merges the snapshot into it. The registry does not use it: it
// builds a Reportable with NewReportable and then merges the snapshot.
func NewFromSnapshot(snap Snapshot) (Sketch, error) {
	s, err := NewFromType(snap.Type, snap.Params)
	if err != nil {
		return nil, err
	}
	if err := s.Merge(snap); err != nil {
		return nil, err
	}
	return s, nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
