// Package conv converts vectors between float64 and float32.
package conv

// Float64To32 converts a float64 vector to float32.
func Float64To32(v []float64) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Float32To64 converts a float32 vector to float64.
func Float32To64(v []float32) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
