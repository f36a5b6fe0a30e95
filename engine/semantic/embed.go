package semantic

import (
	"hash/fnv"
	"math"
)

// Dims is the embedding width. Hashed token features need no training data
// and stay deterministic across processes, which keeps index and query sides
// in agreement without shipping a model.
const Dims = 256

// Embed maps normalized tokens to a unit vector. Unigrams and adjacent
// bigrams are feature-hashed: the low bits pick the dimension, one high bit
// picks the sign, so collisions tend to cancel instead of pile up.
func Embed(tokens []string) []float32 {
	vec := make([]float32, Dims)
	if len(tokens) == 0 {
		return vec
	}
	for i, tok := range tokens {
		addFeature(vec, tok, 1.0)
		if i+1 < len(tokens) {
			addFeature(vec, tok+" "+tokens[i+1], 0.5)
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

func addFeature(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := sum % Dims
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
