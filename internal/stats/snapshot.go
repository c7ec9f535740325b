package stats

import "encoding/json"

// Snapshot is the serializable image of one interval sketch as shipped in a
// progress report. On the wire it is a single flat JSON object:
//
//	{"type": "Histogram", "params": {"numBuckets": 3000}, "items": [...], "extra": [...], ...}
//
// Type and Params identify the sketch kind and its construction parameters;
// Fields holds every other sketch-specific key so that each sketch
// implementation can pull out exactly the fields it knows about.
type Snapshot struct {
	Type   string
	Params map[string]interface{}
	Fields map[string]interface{}
}

// MarshalJSON flattens Type, Params and Fields into one JSON object.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(s.Fields)+2)
	for k, v := range s.Fields {
		m[k] = v
	}
	m["type"] = s.Type
	m["params"] = s.Params
	return json.Marshal(m)
}

// UnmarshalJSON splits a flat JSON object back into Type, Params and Fields.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if t, ok := m["type"].(string); ok {
		s.Type = t
	}
	if p, ok := m["params"].(map[string]interface{}); ok {
		s.Params = p
	}
	delete(m, "type")
	delete(m, "params")
	s.Fields = m
	return nil
}

// --- typed accessors over the loosely-typed Fields/Params maps ---
// JSON numbers decode as float64 and JSON arrays decode as []interface{},
// while a snapshot built in-process by ToSnapshot holds int, int64 and []int;
// these helpers centralize the casts every sketch's Merge/constructor needs.

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func fieldFloat(m map[string]interface{}, key string, def float64) float64 {
	if v, ok := m[key]; ok {
		if f, ok := asFloat(v); ok {
			return f
		}
	}
	return def
}

func fieldInt(m map[string]interface{}, key string, def int) int {
	return int(fieldFloat(m, key, float64(def)))
}

func fieldIntSlice(m map[string]interface{}, key string) []int {
	v, ok := m[key]
	if !ok {
		return nil
	}
	if ints, ok := v.([]int); ok {
		return ints
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, len(raw))
	for i, e := range raw {
		if f, ok := asFloat(e); ok {
			out[i] = int(f)
		}
	}
	return out
}

func fieldStringIntMap(m map[string]interface{}, key string) map[string]int {
	v, ok := m[key]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]int, len(raw))
	for k, e := range raw {
		if f, ok := asFloat(e); ok {
			out[k] = int(f)
		}
	}
	return out
}
