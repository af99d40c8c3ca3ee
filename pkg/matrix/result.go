package matrix

// Unreachable fills cells with no path and cells touching an invalid location.
const Unreachable = -1.0

// Result holds one flat row-major table per requested metric. Cell (i, j)
// of a table is at i*len(destinations)+j. Tables not requested are nil.
type Result struct {
	Sources      *Locations
	Destinations *Locations

	Durations []float64 // seconds
	Distances []float64 // request units
	Weights   []float64 // prepare weighting units
}

func newResult(src, dst *Locations, metrics Metrics) *Result {
	r := &Result{Sources: src, Destinations: dst}
	size := src.Len() * dst.Len()
	if metrics.Has(Duration) {
		r.Durations = make([]float64, size)
	}
	if metrics.Has(Distance) {
		r.Distances = make([]float64, size)
	}
	if metrics.Has(Weight) {
		r.Weights = make([]float64, size)
	}
	return r
}

// Table returns the table for a single metric, or nil if not requested.
func (r *Result) Table(m Metrics) []float64 {
	switch m {
	case Duration:
		return r.Durations
	case Distance:
		return r.Distances
	case Weight:
		return r.Weights
	}
	return nil
}

// Metrics returns the mask of tables present in r.
func (r *Result) Metrics() Metrics {
	var m Metrics
	for _, k := range AllMetrics.Kinds() {
		if r.Table(k) != nil {
			m |= k
		}
	}
	return m
}

// Rows splits the table for m into one slice per source. The rows share
// storage with the table.
func (r *Result) Rows(m Metrics) [][]float64 {
	t := r.Table(m)
	if t == nil {
		return nil
	}
	cols := r.Destinations.Len()
	rows := make([][]float64, r.Sources.Len())
	for i := range rows {
		rows[i] = t[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return rows
}

func (r *Result) set(i, j int, dur, dist, weight float64) {
	c := i*r.Destinations.Len() + j
	if r.Durations != nil {
		r.Durations[c] = dur
	}
	if r.Distances != nil {
		r.Distances[c] = dist
	}
	if r.Weights != nil {
		r.Weights[c] = weight
	}
}

// fillUnreachable sets every cell of every table to Unreachable.
func (r *Result) fillUnreachable() {
	for _, t := range [][]float64{r.Durations, r.Distances, r.Weights} {
		for c := range t {
			t[c] = Unreachable
		}
	}
}
