package pairing

import (
	"regexp"
	"strings"
)

var reMentionPair = regexp.MustCompile(`<@([A-Z0-9]+)>\s+and\s+<@([A-Z0-9]+)>`)

// MagicalTextDecoder parses the pre-metadata record format: a configured
// marker line followed by numbered "<@U1> and <@U2>" lines, one per pair.
type MagicalTextDecoder struct {
	Marker string
}

func (d MagicalTextDecoder) TryParse(body string) ([]PairKey, bool) {
	if d.Marker == "" || !strings.Contains(body, d.Marker) {
		return nil, false
	}
	var keys []PairKey
	for _, m := range reMentionPair.FindAllStringSubmatch(body, -1) {
		if k, ok := candidate(m[1], m[2]); ok {
			keys = append(keys, k)
		}
	}
	return keys, len(keys) > 0
}
