package profile

// Quantile returns the p-quantile of sorted values using linear interpolation
// between closest ranks, so position (n-1)*p.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := float64(len(sorted)-1) * p
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Fences returns the IQR outlier fences.
func Fences(q1, q3, multiplier float64) (float64, float64) {
	iqr := q3 - q1
	return q1 - multiplier*iqr, q3 + multiplier*iqr
}
