package report

import (
	"math"
	"sort"
)

// Sink receives named scalar metrics grouped by scope.
type Sink interface {
	Report(scope, name string, value float64)
}

// Observation holds the metrics of one iteration keyed by "scope/name".
type Observation map[string]float64

func (o Observation) Report(scope, name string, value float64) {
	o[scope+"/"+name] = value
}

func (o Observation) Keys() []string {
	var keys = make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Prefixed returns a copy with every key prefixed by prefix + "/".
func (o Observation) Prefixed(prefix string) Observation {
	var result = make(Observation, len(o))
	for k, v := range o {
		result[prefix+"/"+k] = v
	}
	return result
}

func (o Observation) Merge(other Observation) {
	for k, v := range other {
		o[k] = v
	}
}

type Discard struct{}

func (Discard) Report(scope, name string, value float64) {}

// Summary accumulates per-key running means. Keys may appear in only some observations.
type Summary struct {
	sums   map[string]float64
	counts map[string]int
}

func NewSummary() *Summary {
	var s = &Summary{}
	s.Reset()
	return s
}

func (s *Summary) Add(o Observation) {
	for k, v := range o {
		s.sums[k] += v
		s.counts[k]++
	}
}

func (s *Summary) Mean() Observation {
	var result = make(Observation, len(s.sums))
	for k, sum := range s.sums {
		result[k] = sum / float64(s.counts[k])
	}
	return result
}

func (s *Summary) Reset() {
	s.sums = make(map[string]float64)
	s.counts = make(map[string]int)
}

// jsonValues replaces non-finite values with nil so they encode as JSON null.
func jsonValues(m map[string]float64) map[string]interface{} {
	var result = make(map[string]interface{}, len(m))
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			result[k] = nil
		} else {
			result[k] = v
		}
	}
	return result
}
