package engine

// Score converts a cosine distance into a similarity score. Cosine distance
// on unit vectors ranges over [0, 2]; the score keeps the intuitive reading
// where 1 is identical and anti-correlated embeddings floor at 0 rather
// than going negative.
func Score(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
