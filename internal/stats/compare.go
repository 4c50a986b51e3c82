package stats

import "math"

// Entry is one player's aggregate as fed to Compare
type Entry struct {
	Name  string
	Stats Aggregate
}

// Superlative is the best value seen for one stat and who holds it
type Superlative struct {
	Key   Key     `json:"key"`
	Value float64 `json:"value"`
	Owner string  `json:"owner"`
}

// Compare returns, for every schema key in schema order, the entry with the
// highest value. A later entry replaces the holder only when strictly
// greater, so ties go to whoever appears first in entries.
func Compare(entries []Entry) []Superlative {
	if len(entries) == 0 {
		return nil
	}

	result := make([]Superlative, 0, len(Schema))
	for _, f := range Schema {
		best := Superlative{Key: f.Key, Value: math.Inf(-1)}
		for _, e := range entries {
			if v := e.Stats.Get(f.Key); v > best.Value {
				best.Value = v
				best.Owner = e.Name
			}
		}
		result = append(result, best)
	}
	return result
}
