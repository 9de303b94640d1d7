package features

// Vector is a feature vector laid out as Mel energies, then cepstral
// coefficients, then chroma bins.
type Vector []float32

// Shape returns the model input shape of a single vector.
func (v Vector) Shape() []int64 {
	return []int64{1, int64(len(v))}
}

// Data returns the values in row-major order.
func (v Vector) Data() []float32 {
	return v
}

// Mel returns the Mel energy block.
func (v Vector) Mel() []float32 {
	return v.block(0, NumMel)
}

// Cepstral returns the cepstral coefficient block.
func (v Vector) Cepstral() []float32 {
	return v.block(NumMel, NumMel+NumCepstral)
}

// Chroma returns the chroma block.
func (v Vector) Chroma() []float32 {
	return v.block(NumMel+NumCepstral, Dimension)
}

func (v Vector) block(from, to int) []float32 {
	if len(v) != Dimension {
		return nil
	}
	return v[from:to]
}
