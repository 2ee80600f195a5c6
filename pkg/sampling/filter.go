package sampling

import (
	"math"
	"sort"

	"github.com/megaman333/Clover-Edition/pkg/token"
)

// Filter applies temperature scaling, top-k truncation, and nucleus
// (top-p) truncation, in that order, and returns a renormalized copy
// of the distribution. When top-k and top-p are combined, top-k
// narrows first and top-p narrows the survivors further; it never
// widens.
//
// A degenerate input (all-zero scores, or scores wiped out by
// truncation) falls back to a uniform distribution over the full
// vocabulary. Generation must never deadlock on an empty candidate
// set, so that condition is recovered here rather than surfaced.
func Filter(dist token.Distribution, temperature float64, topK int, topP float64) (token.Distribution, error) {
	if temperature <= 0 {
		return nil, InvalidConfigError{Key: "temperature", Value: temperature, Reason: "must be > 0"}
	}
	if topP <= 0 || topP > 1 {
		return nil, InvalidConfigError{Key: "top-p", Value: topP, Reason: "must be in (0, 1]"}
	}

	out := scale(dist, temperature)
	if out.Mass() <= 0 {
		out.Uniform()
		return out, nil
	}

	if topK > 0 && topK < len(out) {
		truncateTopK(out, topK)
	}

	out.Normalize()
	if topP < 1 {
		truncateTopP(out, topP)
	}

	if out.Mass() <= 0 {
		out.Uniform()
		return out, nil
	}
	out.Normalize()
	return out, nil
}

// scale divides each score's log-space value by the temperature,
// i.e. s^(1/T). Zero scores stay zero.
func scale(dist token.Distribution, temperature float64) token.Distribution {
	out := make(token.Distribution, len(dist))
	if temperature == 1 {
		copy(out, dist)
		return out
	}
	for i, s := range dist {
		if s <= 0 {
			continue
		}
		out[i] = math.Exp(math.Log(s) / temperature)
	}
	return out
}

// byScore orders candidate indices by descending score, ties broken by
// original vocabulary order for determinism.
type byScore struct {
	ids    []int
	scores token.Distribution
}

func (b byScore) Len() int      { return len(b.ids) }
func (b byScore) Swap(i, j int) { b.ids[i], b.ids[j] = b.ids[j], b.ids[i] }
func (b byScore) Less(i, j int) bool {
	si, sj := b.scores[b.ids[i]], b.scores[b.ids[j]]
	if si != sj {
		return si > sj
	}
	return b.ids[i] < b.ids[j]
}

func sortedCandidates(dist token.Distribution) []int {
	ids := make([]int, 0, len(dist))
	for i, s := range dist {
		if s > 0 {
			ids = append(ids, i)
		}
	}
	sort.Sort(byScore{ids: ids, scores: dist})
	return ids
}

// truncateTopK zeroes every score outside the k highest, in place.
func truncateTopK(dist token.Distribution, k int) {
	ids := sortedCandidates(dist)
	if len(ids) <= k {
		return
	}
	for _, id := range ids[k:] {
		dist[id] = 0
	}
}

// truncateTopP keeps the smallest descending-score prefix whose
// cumulative normalized mass reaches p, zeroing the rest in place.
// The distribution must already be normalized.
func truncateTopP(dist token.Distribution, p float64) {
	ids := sortedCandidates(dist)

	var cum float64
	cut := len(ids)
	for i, id := range ids {
		cum += dist[id]
		if cum >= p {
			cut = i + 1
			break
		}
	}
	for _, id := range ids[cut:] {
		dist[id] = 0
	}
}
