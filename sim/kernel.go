package sim

// CountHits draws quota points from s and returns how many fall inside the
// unit quarter-circle (x²+y² ≤ 1, boundary included). The loop allocates
// nothing and touches no shared state.
func CountHits(quota int64, s *Stream) int64 {
	var hits int64
	for i := int64(0); i < quota; i++ {
		x := s.Float64()
		y := s.Float64()
		if x*x+y*y <= 1.0 {
			hits++
		}
	}
	return hits
}

// EstimatePi returns 4·hits/samples, or 0 when no samples were drawn.
func EstimatePi(hits, samples int64) float64 {
	if samples <= 0 {
		return 0
	}
	return 4.0 * float64(hits) / float64(samples)
}
