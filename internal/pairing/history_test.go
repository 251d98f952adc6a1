package pairing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botID = "UBOT"

func pairPayload(a, b string) map[string]any {
	return map[string]any{"pair": []string{a, b}}
}

func recordMsg(author string, ts time.Time, a, b string) RawMessage {
	return RawMessage{
		Author:    author,
		Timestamp: ts,
		EventType: EventType,
		Payload:   pairPayload(a, b),
	}
}

func TestExtractFiltersByAuthorAndWindow(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	msgs := []RawMessage{
		recordMsg(botID, now.AddDate(0, 0, -1), "U1", "U2"),
		recordMsg(botID, now.AddDate(0, 0, -27), "U3", "U4"),
		// Outside the 28-day window.
		recordMsg(botID, now.AddDate(0, 0, -29), "U5", "U6"),
		// Right author, zero timestamp (unparseable upstream).
		recordMsg(botID, time.Time{}, "U7", "U8"),
		// Wrong author, recent.
		recordMsg("UOTHER", now.AddDate(0, 0, -1), "U9", "U10"),
	}

	history := Extract(msgs, botID, 28, now, nil)

	assert.Equal(t, HistorySet{
		NewPairKey("U1", "U2"): {},
		NewPairKey("U3", "U4"): {},
	}, history)
}

func TestExtractSkipsMalformedMetadata(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	ts := now.AddDate(0, 0, -1)
	msgs := []RawMessage{
		// No metadata at all.
		{Author: botID, Timestamp: ts, Text: "Just a regular message"},
		// Foreign event type.
		{Author: botID, Timestamp: ts, EventType: "something_else", Payload: pairPayload("U1", "U2")},
		// Wrong arity.
		{Author: botID, Timestamp: ts, EventType: EventType, Payload: map[string]any{"pair": []string{"U1"}}},
		// Wrong element type.
		{Author: botID, Timestamp: ts, EventType: EventType, Payload: map[string]any{"pair": []any{"U1", 42}}},
		// Blank member.
		recordMsg(botID, ts, "U1", "  "),
		// Self-pair.
		recordMsg(botID, ts, "U1", "U1"),
		// The one valid record.
		recordMsg(botID, ts, "U1", "U2"),
	}

	history := Extract(msgs, botID, 28, now, nil)

	assert.Equal(t, HistorySet{NewPairKey("U1", "U2"): {}}, history)
}

func TestExtractCollapsesDuplicates(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	msgs := []RawMessage{
		recordMsg(botID, now.AddDate(0, 0, -1), "U1", "U2"),
		recordMsg(botID, now.AddDate(0, 0, -2), "U2", "U1"),
		recordMsg(botID, now.AddDate(0, 0, -3), "U1", "U2"),
	}

	history := Extract(msgs, botID, 28, now, nil)
	assert.Len(t, history, 1)
	assert.True(t, history.Contains("U1", "U2"))
}

func TestExtractDecodesJSONShapedPayload(t *testing.T) {
	// Payloads fetched over the wire arrive with []any, not []string.
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	msgs := []RawMessage{{
		Author:    botID,
		Timestamp: now.AddDate(0, 0, -1),
		EventType: EventType,
		Payload:   map[string]any{"pair": []any{"U1", "U2"}},
	}}

	history := Extract(msgs, botID, 28, now, nil)
	assert.True(t, history.Contains("U1", "U2"))
}

func TestExtractDecodesRoundLevelPayload(t *testing.T) {
	// The format posted by earlier releases: one message per round.
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	msgs := []RawMessage{{
		Author:    botID,
		Timestamp: now.AddDate(0, 0, -1),
		EventType: "random_coffee_pairs",
		Payload: map[string]any{
			"pairs": []any{
				map[string]any{"user1": "U1", "user2": "U2"},
				map[string]any{"user1": "U3", "user2": "U4"},
				map[string]any{"user1": "U5", "user2": "U5"}, // dropped
			},
		},
	}}

	history := Extract(msgs, botID, 28, now, nil)

	assert.Equal(t, HistorySet{
		NewPairKey("U1", "U2"): {},
		NewPairKey("U3", "U4"): {},
	}, history)
}

func TestExtractLegacyDecoderFallback(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	decoder := MagicalTextDecoder{Marker: "Coffee pairs of the week"}
	msgs := []RawMessage{
		{
			Author:    botID,
			Timestamp: now.AddDate(0, 0, -1),
			Text:      "Coffee pairs of the week:\n 1. <@U1> and <@U2>\n 2. <@U3> and <@U4>\nfooter",
		},
		// No marker: ignored even though it mentions members.
		{
			Author:    botID,
			Timestamp: now.AddDate(0, 0, -1),
			Text:      "welcome <@U8> and <@U9>",
		},
		// Metadata wins over body when both are present.
		{
			Author:    botID,
			Timestamp: now.AddDate(0, 0, -2),
			EventType: EventType,
			Payload:   pairPayload("U5", "U6"),
			Text:      "Coffee pairs of the week:\n 1. <@UX> and <@UY>\n",
		},
	}

	history := Extract(msgs, botID, 28, now, decoder)

	assert.Equal(t, HistorySet{
		NewPairKey("U1", "U2"): {},
		NewPairKey("U3", "U4"): {},
		NewPairKey("U5", "U6"): {},
	}, history)
}

func TestMagicalTextDecoder(t *testing.T) {
	decoder := MagicalTextDecoder{Marker: "Coffee pairs"}

	keys, ok := decoder.TryParse("Coffee pairs:\n 1. <@U1> and <@U2>\n")
	require.True(t, ok)
	assert.Equal(t, []PairKey{NewPairKey("U1", "U2")}, keys)

	_, ok = decoder.TryParse("Coffee pairs:\nno mentions here")
	assert.False(t, ok)

	_, ok = decoder.TryParse("<@U1> and <@U2>")
	assert.False(t, ok, "body without the marker must not parse")

	_, ok = MagicalTextDecoder{}.TryParse("Coffee pairs:\n 1. <@U1> and <@U2>\n")
	assert.False(t, ok, "empty marker disables the decoder")
}
