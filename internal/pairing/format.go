package pairing

import (
	"fmt"
	"strings"
)

// Payload is one outbound message: a human-readable body plus the metadata
// block that lets a later run re-extract the pair via Extract.
type Payload struct {
	Body      string
	EventType string
	Metadata  map[string]any
}

// FormatRound produces one payload per pair. A doubled member simply shows up
// in two payloads, one per pair it belongs to.
func FormatRound(result RoundResult) []Payload {
	payloads := make([]Payload, 0, len(result.Pairs))
	for _, p := range result.Pairs {
		payloads = append(payloads, Payload{
			Body:      fmt.Sprintf("<@%s> and <@%s>", p.A, p.B),
			EventType: EventType,
			Metadata: map[string]any{
				"pair": []string{p.A, p.B},
			},
		})
	}
	return payloads
}

// SummaryMessage renders the whole round as one numbered list under the
// configured marker text, in the format earlier releases posted (and that
// MagicalTextDecoder can still read back).
func SummaryMessage(result RoundResult, magicalText string, lookbackDays int) string {
	if len(result.Pairs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(magicalText)
	b.WriteString(":\n")
	for i, p := range result.Pairs {
		fmt.Fprintf(&b, " %d. <@%s> and <@%s>\n", i+1, p.A, p.B)
	}
	fmt.Fprintf(&b,
		"An uneven number of members results in one person getting two coffee matches. "+
			"Matches from the last %d days considered to avoid matching the same members "+
			"several times in the time period.", lookbackDays)
	return b.String()
}

// DMBody renders the group DM sent to one pair.
func DMBody(p Pair, channelID string) string {
	return fmt.Sprintf(
		"Hello <@%s> and <@%s>\nYou've been randomly selected for <#%s>!\nTake some time to meet soon.",
		p.A, p.B, channelID)
}
