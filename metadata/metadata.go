// Package metadata provides chunk metadata storage, a small filter DSL and
// a Roaring Bitmap inverted index for efficient filtered search.
package metadata

// Metadata is an attribute map attached to a chunk.
// Values are scalars (string, bool, int, int64, float32, float64) or
// arrays of scalars.
type Metadata map[string]any

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
