package pairing

import (
	"strings"
	"time"
)

// EventType marks messages posted by this bot to record one committed pair.
const EventType = "random_coffee_pair"

// legacyEventType is the round-level metadata format posted by earlier
// releases: one message carrying every pair of the round.
const legacyEventType = "random_coffee_pairs"

// RawMessage is one externally fetched channel message, reduced to the fields
// extraction cares about. Payload holds the message metadata as delivered by
// the API (JSON-shaped, so arrays may arrive as []any); it is nil when the
// message carried none.
type RawMessage struct {
	Author    string
	Timestamp time.Time
	EventType string
	Payload   map[string]any
	Text      string
}

// LegacyDecoder recovers pairs from message bodies that predate structured
// metadata. Implementations return ok=false when the body is not a pairing
// record.
type LegacyDecoder interface {
	TryParse(body string) ([]PairKey, bool)
}

// Extract builds the history set from raw channel messages: only messages
// authored by botID and no older than lookbackDays before now contribute.
// Structured metadata is tried first; when absent and a legacy decoder is
// supplied, the message body gets one more chance. Anything malformed is
// skipped silently.
func Extract(msgs []RawMessage, botID string, lookbackDays int, now time.Time, legacy LegacyDecoder) HistorySet {
	cutoff := now.AddDate(0, 0, -lookbackDays)
	history := make(HistorySet)

	for _, m := range msgs {
		if m.Author != botID {
			continue
		}
		if m.Timestamp.Before(cutoff) {
			continue
		}
		keys, ok := decodePayload(m.EventType, m.Payload)
		if !ok && legacy != nil {
			keys, ok = legacy.TryParse(m.Text)
		}
		if !ok {
			continue
		}
		for _, k := range keys {
			history[k] = struct{}{}
		}
	}

	return history
}

func decodePayload(eventType string, payload map[string]any) ([]PairKey, bool) {
	if payload == nil {
		return nil, false
	}

	switch eventType {
	case EventType:
		ids := stringSlice(payload["pair"])
		if len(ids) != 2 {
			return nil, false
		}
		k, ok := candidate(ids[0], ids[1])
		if !ok {
			return nil, false
		}
		return []PairKey{k}, true

	case legacyEventType:
		items, ok := payload["pairs"].([]any)
		if !ok {
			return nil, false
		}
		var keys []PairKey
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			a, _ := entry["user1"].(string)
			b, _ := entry["user2"].(string)
			if k, ok := candidate(a, b); ok {
				keys = append(keys, k)
			}
		}
		return keys, len(keys) > 0
	}

	return nil, false
}

// candidate validates and canonicalizes one decoded pair. Blank IDs and
// self-pairs are rejected rather than reported; the source data is partly
// legacy and partly foreign, so bad entries are expected.
func candidate(a, b string) (PairKey, bool) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" || a == b {
		return PairKey{}, false
	}
	return NewPairKey(a, b), true
}

// stringSlice tolerates both []string (payloads built in-process) and []any
// (payloads round-tripped through JSON).
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	return nil
}
