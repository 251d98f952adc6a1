// Package pairing implements the random coffee matching core: reading pair
// history out of previously posted messages, generating a new round of pairs
// that avoids recent repeats, and formatting the round for posting.
package pairing

// Pair is one committed match for the current round. Field order reflects how
// the pair was committed; use Key for history comparisons.
type Pair struct {
	A string
	B string
}

func (p Pair) Key() PairKey {
	return NewPairKey(p.A, p.B)
}

// PairKey identifies an unordered pair of two distinct members. The IDs are
// stored sorted so (A,B) and (B,A) compare and hash identically.
type PairKey struct {
	Low  string
	High string
}

func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// HistorySet holds the pairs observed within the lookback window. Presence is
// all that matters; duplicates in the source collapse into one entry.
type HistorySet map[PairKey]struct{}

func (h HistorySet) Add(a, b string) {
	h[NewPairKey(a, b)] = struct{}{}
}

func (h HistorySet) Contains(a, b string) bool {
	_, ok := h[NewPairKey(a, b)]
	return ok
}
