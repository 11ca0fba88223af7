package parallel

// Band is a half-open row interval [Lo, Hi) processed by one worker.
type Band struct {
	Lo int
	Hi int
}

// Bands splits height rows into at most n bands whose boundaries are
// multiples of step. Every band except the last holds the same number of
// rows. n <= 0 is treated as 1.
func Bands(height, n, step int) []Band {
	if height <= 0 {
		return nil
	}
	if step <= 0 {
		step = 1
	}
	groups := (height + step - 1) / step
	n = min(max(n, 1), groups)

	per := (groups + n - 1) / n * step
	bands := make([]Band, 0, n)
	for lo := 0; lo < height; lo += per {
		bands = append(bands, Band{Lo: lo, Hi: min(lo+per, height)})
	}
	return bands
}
