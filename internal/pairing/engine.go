package pairing

import (
	"errors"
	"math/rand"
)

// ErrNotEnoughMembers is returned when the roster cannot form a single pair.
var ErrNotEnoughMembers = errors.New("pairing: need at least two members")

// RoundResult is the full pairing for one run. When the roster size is odd,
// Doubled names the one member that appears in two pairs; it is empty
// otherwise.
type RoundResult struct {
	Pairs   []Pair
	Doubled string
}

// Members returns every member of the result in commit order, with the
// doubled member listed once per pair it belongs to.
func (r RoundResult) Members() []string {
	out := make([]string, 0, 2*len(r.Pairs))
	for _, p := range r.Pairs {
		out = append(out, p.A, p.B)
	}
	return out
}

// GeneratePairs matches every roster member with a partner, preferring pairs
// not present in history. Novelty is a soft preference: when a member has
// already met everyone still unplaced, they are paired with the next unplaced
// member anyway. With an odd roster the leftover member is attached to an
// already committed member, so exactly one member ends up in two pairs.
//
// The roster is not modified. Given the same inputs and the same rng stream
// the output is identical.
func GeneratePairs(roster []string, history HistorySet, rng *rand.Rand) (RoundResult, error) {
	if len(roster) < 2 {
		return RoundResult{}, ErrNotEnoughMembers
	}

	pool := append([]string(nil), roster...)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	var result RoundResult
	for len(pool) >= 2 {
		m := pool[0]
		pool = pool[1:]

		// Prefer the first candidate m has not met recently; fall back to
		// the very next unplaced member when everyone left is a repeat.
		idx := 0
		for i, c := range pool {
			if !history.Contains(m, c) {
				idx = i
				break
			}
		}
		c := pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)
		result.Pairs = append(result.Pairs, Pair{A: m, B: c})
	}

	if len(pool) == 1 {
		leftover := pool[0]
		partner := pickPartner(leftover, result.Pairs, history, rng)
		result.Pairs = append(result.Pairs, Pair{A: leftover, B: partner})
		result.Doubled = partner
	}

	return result, nil
}

// pickPartner chooses which already placed member absorbs the odd leftover:
// the first placed member, in commit order, that the leftover has not met
// recently, or a random placed member when all of them are repeats.
func pickPartner(leftover string, pairs []Pair, history HistorySet, rng *rand.Rand) string {
	placed := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		placed = append(placed, p.A, p.B)
	}
	for _, m := range placed {
		if !history.Contains(leftover, m) {
			return m
		}
	}
	return placed[rng.Intn(len(placed))]
}
