package sampling

import (
	"errors"

	"github.com/megaman333/Clover-Edition/pkg/random"
	"github.com/megaman333/Clover-Edition/pkg/token"
)

// ErrEmptyCandidateSet reports a distribution with no score mass. The
// filter's uniform fallback makes this unreachable in the normal
// decoding path; it exists so a misused Sample fails loudly instead of
// returning token 0 silently.
var ErrEmptyCandidateSet = errors.New("sampling: empty candidate set")

// Sample draws one token from the distribution by inverse-CDF lookup
// on a single uniform draw. Given the same Source seed and the same
// distribution, Sample always returns the same token.
//
// The returned token always has nonzero mass in the input
// distribution.
func Sample(dist token.Distribution, rng random.Source) (token.ID, error) {
	mass := dist.Mass()
	if mass <= 0 {
		return 0, ErrEmptyCandidateSet
	}

	target := rng.Float64() * mass
	var cum float64
	last := token.ID(-1)
	for i, s := range dist {
		if s <= 0 {
			continue
		}
		last = token.ID(i)
		cum += s
		if cum > target {
			return last, nil
		}
	}

	// Floating-point rounding can leave cum fractionally below mass;
	// the draw then lands on the final nonzero token.
	return last, nil
}
