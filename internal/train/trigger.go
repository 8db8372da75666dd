package train

// IntervalTrigger fires every Period iterations.
type IntervalTrigger struct {
	Period int
}

func (t IntervalTrigger) Fire(iteration int) bool {
	return t.Period > 0 && iteration > 0 && iteration%t.Period == 0
}
