// Package token holds the primitives the engine receives from a model
// collaborator: token identifiers and score distributions over a fixed
// vocabulary.
package token

// ID identifies a single vocabulary entry.
type ID int

// Distribution is a score vector indexed by token ID. Scores are
// non-negative and need not sum to one; callers normalize when they
// need a probability mass function. Its length is always the
// vocabulary size.
type Distribution []float64

// NewDistribution returns an all-zero distribution over a vocabulary
// of the given size.
func NewDistribution(vocabSize int) Distribution {
	return make(Distribution, vocabSize)
}

// Clone returns an independent copy of the distribution.
func (d Distribution) Clone() Distribution {
	out := make(Distribution, len(d))
	copy(out, d)
	return out
}

// Mass returns the total score mass.
func (d Distribution) Mass() float64 {
	var sum float64
	for _, s := range d {
		sum += s
	}
	return sum
}

// Normalize scales the distribution in place so scores sum to one.
// An all-zero distribution is left untouched; callers handle that as
// an empty candidate set.
func (d Distribution) Normalize() {
	sum := d.Mass()
	if sum <= 0 {
		return
	}
	for i := range d {
		d[i] /= sum
	}
}

// Uniform resets the distribution in place to uniform mass over the
// full vocabulary. This is the fallback for a degenerate candidate
// set: generation must never deadlock on an empty distribution.
func (d Distribution) Uniform() {
	if len(d) == 0 {
		return
	}
	p := 1.0 / float64(len(d))
	for i := range d {
		d[i] = p
	}
}
