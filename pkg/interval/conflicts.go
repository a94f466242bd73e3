package interval

// Conflicts is the only place endpoint comparisons between two intervals are made.
// Intervals that merely touch (a.end == b.start) do not conflict.
func Conflicts(a, b Interval) bool {
	return !(!a.end.After(b.start) || !b.end.After(a.start))
}

// FirstConflict returns the first candidate in existing that conflicts with iv.
func FirstConflict(iv Interval, existing []Interval) (Interval, bool) {
	for _, e := range existing {
		if Conflicts(iv, e) {
			return e, true
		}
	}
	return Interval{}, false
}
