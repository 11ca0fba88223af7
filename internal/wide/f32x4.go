package wide

// F32x4 represents 4 float32 lanes, one 128-bit register.
type F32x4 [4]float32

// SplatF32x4 creates a F32x4 with all lanes set to n.
func SplatF32x4(n float32) F32x4 {
	var result F32x4
	for i := range result {
		result[i] = n
	}
	return result
}

// LoadF32x4 loads the first 4 elements of s. s must hold at least 4 elements.
func LoadF32x4(s []float32) F32x4 {
	var result F32x4
	copy(result[:], s[:4])
	return result
}

// Store writes the lanes to the first 4 elements of s.
func (v F32x4) Store(s []float32) {
	copy(s[:4], v[:])
}

// Add performs element-wise addition.
func (v F32x4) Add(other F32x4) F32x4 {
	var result F32x4
	for i := range v {
		result[i] = v[i] + other[i]
	}
	return result
}

// Mul performs element-wise multiplication.
func (v F32x4) Mul(other F32x4) F32x4 {
	var result F32x4
	for i := range v {
		result[i] = v[i] * other[i]
	}
	return result
}

// MulAdd returns v + a*b per lane.
func (v F32x4) MulAdd(a, b F32x4) F32x4 {
	var result F32x4
	for i := range v {
		result[i] = v[i] + a[i]*b[i]
	}
	return result
}

// MulAddScalar returns v + a*s per lane.
func (v F32x4) MulAddScalar(a F32x4, s float32) F32x4 {
	var result F32x4
	for i := range v {
		result[i] = v[i] + a[i]*s
	}
	return result
}

// Clamp clamps each lane to [minVal, maxVal].
func (v F32x4) Clamp(minVal, maxVal float32) F32x4 {
	var result F32x4
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
