package wide

// F32x8 represents 8 float32 lanes, one 256-bit register.
type F32x8 [8]float32

// SplatF32 creates a F32x8 with all lanes set to n.
func SplatF32(n float32) F32x8 {
	var result F32x8
	for i := range result {
		result[i] = n
	}
	return result
}

// LoadF32x8 loads the first 8 elements of s. s must hold at least 8 elements.
func LoadF32x8(s []float32) F32x8 {
	var result F32x8
	copy(result[:], s[:8])
	return result
}

// Store writes the lanes to the first 8 elements of s.
func (v F32x8) Store(s []float32) {
	copy(s[:8], v[:])
}

// Add performs element-wise addition.
func (v F32x8) Add(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] + other[i]
	}
	return result
}

// Mul performs element-wise multiplication.
func (v F32x8) Mul(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] * other[i]
	}
	return result
}

// MulAdd returns v + a*b per lane.
func (v F32x8) MulAdd(a, b F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] + a[i]*b[i]
	}
	return result
}

// MulAddScalar returns v + a*s per lane.
func (v F32x8) MulAddScalar(a F32x8, s float32) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] + a[i]*s
	}
	return result
}

// Clamp clamps each lane to [minVal, maxVal].
func (v F32x8) Clamp(minVal, maxVal float32) F32x8 {
	var result F32x8
	for i := range v {
		switch {
		case v[i] < minVal:
			result[i] = minVal
		case v[i] > maxVal:
			result[i] = maxVal
		default:
			result[i] = v[i]
		}
	}
	return result
}
