package sampling

import "github.com/megaman333/Clover-Edition/pkg/token"

// Penalize adjusts scores for tokens that already appear in history,
// CTRL-style: each distinct history token's score is divided by the
// penalty. Values above 1 discourage repeats; values in (0, 1) boost
// repeated tokens instead, a supported but discouraged mode.
// penalty == 1 is a pure pass-through.
//
// Penalize runs strictly before filtering so truncation decisions see
// penalized scores. The input distribution is not mutated.
func Penalize(dist token.Distribution, history []token.ID, penalty float64) token.Distribution {
	if penalty == 1 || len(history) == 0 {
		return dist.Clone()
	}

	out := dist.Clone()
	seen := make(map[token.ID]struct{}, len(history))
	for _, id := range history {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if int(id) < 0 || int(id) >= len(out) {
			continue
		}
		if penalty == 0 {
			// Degenerate encourage-mode: zero penalty would divide by
			// zero, so treat it as zeroing the score instead.
			out[id] = 0
			continue
		}
		out[id] /= penalty
	}
	return out
}

// Window returns the trailing slice of history the penalizer should
// scan. size == 0 means the entire history.
func Window(history []token.ID, size int) []token.ID {
	if size <= 0 || len(history) <= size {
		return history
	}
	return history[len(history)-size:]
}
