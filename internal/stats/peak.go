package stats

import "fmt"

// Peak tracks a running maximum.
type Peak struct {
	max    float64
	length int64
	seen   bool
}

func NewPeak() *Peak { return &Peak{} }

func (p *Peak) Put(sample float64) {
	if !p.seen || sample > p.max {
		p.max = sample
		p.seen = true
	}
	p.length++
}

func (p *Peak) Clear() {
	p.max = 0
	p.length = 0
	p.seen = false
}

func (p *Peak) Length() int { return int(p.length) }

func (p *Peak) Summary() Summary {
	return Summary{"max": p.max, "length": p.length}
}

func (p *Peak) ToSnapshot() Snapshot {
	return Snapshot{
		Type:   "Peak",
		Params: map[string]interface{}{},
		Fields: map[string]interface{}{
			"max":    p.max,
			"length": p.length,
		},
	}
}

func (p *Peak) Merge(other Snapshot) error {
	if other.Type != "Peak" {
		return fmt.Errorf("%w: expected Peak, got %s", ErrIncompatibleMerge, other.Type)
	}
	otherLength := int64(fieldFloat(other.Fields, "length", 0))
	if otherLength == 0 {
		return nil
	}
	otherMax := fieldFloat(other.Fields, "max", 0)
	if !p.seen || otherMax > p.max {
		p.max = otherMax
		p.seen = true
	}
	p.length += otherLength
	return nil
}
