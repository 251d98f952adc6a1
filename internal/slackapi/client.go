// Package slackapi wraps the Slack Web API behind the directory and
// messaging interfaces the runner consumes. Pagination and the polite
// inter-request waits live here so callers see complete results.
package slackapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/slack-go/slack"

	"github.com/skauge/randomcoffee/internal/pairing"
)

// Inter-request waits, matching Slack's tier limits for these endpoints.
const (
	channelListDelay = 10 * time.Second
	membersPageDelay = 5 * time.Second
	historyPageDelay = 1 * time.Second
	mpimDelay        = 1 * time.Second
)

const pageLimit = 200

type Client struct {
	api             *slack.Client
	chanNamesAreIDs bool
	botID           string
}

func New(token string, chanNamesAreIDs bool) (*Client, error) {
	if token == "" {
		return nil, errors.New("slack token cannot be empty")
	}
	return &Client{
		api:             slack.New(token),
		chanNamesAreIDs: chanNamesAreIDs,
	}, nil
}

// BotIdentity returns the bot's own user ID, cached after the first call.
func (c *Client) BotIdentity(ctx context.Context) (string, error) {
	if c.botID != "" {
		return c.botID, nil
	}
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth test failed: %w", err)
	}
	c.botID = resp.UserID
	log.Printf("Bot user ID: %s", c.botID)
	return c.botID, nil
}

// ResolveChannelIDs maps channel names to IDs by paging conversations.list.
// When channel names are already IDs the lookup is skipped entirely.
func (c *Client) ResolveChannelIDs(ctx context.Context, names []string) (map[string]string, error) {
	resolved := make(map[string]string, len(names))
	if c.chanNamesAreIDs {
		for _, name := range names {
			resolved[name] = name
		}
		return resolved, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	cursor := ""
	for {
		channels, next, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Cursor: cursor,
			Limit:  pageLimit,
			Types:  []string{"public_channel", "private_channel"},
		})
		if err != nil {
			return nil, fmt.Errorf("listing channels: %w", err)
		}
		log.Printf("Retrieved %d channels", len(channels))

		for _, ch := range channels {
			if wanted[ch.Name] {
				resolved[ch.Name] = ch.ID
			}
		}
		if len(resolved) == len(names) {
			break
		}
		if next == "" {
			break
		}
		cursor = next
		if err := wait(ctx, channelListDelay); err != nil {
			return nil, err
		}
	}

	var missing []string
	for _, name := range names {
		if _, ok := resolved[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("could not find channels: %v", missing)
	}
	return resolved, nil
}

// ChannelMembers returns the non-bot members of a channel. A failed user
// lookup skips that member rather than failing the whole roster.
func (c *Client) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	var memberIDs []string
	cursor := ""
	for {
		ids, next, err := c.api.GetUsersInConversationContext(ctx, &slack.GetUsersInConversationParameters{
			ChannelID: channelID,
			Cursor:    cursor,
			Limit:     pageLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("listing members of %s: %w", channelID, err)
		}
		memberIDs = append(memberIDs, ids...)
		if next == "" {
			break
		}
		cursor = next
		log.Printf("Currently retrieved: %d members", len(memberIDs))
		if err := wait(ctx, membersPageDelay); err != nil {
			return nil, err
		}
	}

	members := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		user, err := c.api.GetUserInfoContext(ctx, id)
		if err != nil {
			log.Printf("Could not fetch user info for %s: %v", id, err)
			continue
		}
		if !user.IsBot {
			members = append(members, user.ID)
		}
	}
	log.Printf("Found %d non-bot members", len(members))
	return members, nil
}

// ChannelHistory fetches every message posted since oldest, including message
// metadata, and converts them for the history extractor.
func (c *Client) ChannelHistory(ctx context.Context, channelID string, oldest time.Time) ([]pairing.RawMessage, error) {
	var msgs []pairing.RawMessage
	cursor := ""
	for {
		resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID:          channelID,
			Cursor:             cursor,
			Limit:              pageLimit,
			Oldest:             formatSlackTS(oldest),
			IncludeAllMetadata: true,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching history of %s: %w", channelID, err)
		}
		for _, m := range resp.Messages {
			msgs = append(msgs, toRawMessage(m))
		}
		if !resp.HasMore {
			break
		}
		cursor = resp.ResponseMetaData.NextCursor
		log.Printf("Fetching next page of conversation history")
		if err := wait(ctx, historyPageDelay); err != nil {
			return nil, err
		}
	}
	log.Printf("Retrieved %d messages from channel %s", len(msgs), channelID)
	return msgs, nil
}

// PostPayload posts one pair record, attaching its metadata so a later run
// can read the pair back.
func (c *Client) PostPayload(ctx context.Context, channelID string, p pairing.Payload) error {
	_, _, err := c.postMessage(ctx, channelID,
		slack.MsgOptionText(p.Body, false),
		slack.MsgOptionMetadata(slack.SlackMetadata{
			EventType:    p.EventType,
			EventPayload: p.Metadata,
		}))
	if err != nil {
		return fmt.Errorf("posting pair record to %s: %w", channelID, err)
	}
	return nil
}

func (c *Client) PostText(ctx context.Context, channelID, text string) error {
	if _, _, err := c.postMessage(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("posting message to %s: %w", channelID, err)
	}
	return nil
}

// SendGroupDM opens a multi-party DM with the given members and posts body.
func (c *Client) SendGroupDM(ctx context.Context, members []string, body string) error {
	ch, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: members,
	})
	if err != nil {
		return fmt.Errorf("opening group DM with %v: %w", members, err)
	}
	if _, _, err := c.postMessage(ctx, ch.ID, slack.MsgOptionText(body, false)); err != nil {
		return fmt.Errorf("sending group DM to %v: %w", members, err)
	}
	return wait(ctx, mpimDelay)
}

// postMessage posts with a single retry when Slack answers 429.
func (c *Client) postMessage(ctx context.Context, channelID string, opts ...slack.MsgOption) (string, string, error) {
	respChannel, ts, err := c.api.PostMessageContext(ctx, channelID, opts...)
	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		log.Printf("Rate limited posting to %s, retrying after %s", channelID, rle.RetryAfter)
		if werr := wait(ctx, rle.RetryAfter); werr != nil {
			return "", "", werr
		}
		respChannel, ts, err = c.api.PostMessageContext(ctx, channelID, opts...)
	}
	return respChannel, ts, err
}

func toRawMessage(m slack.Message) pairing.RawMessage {
	return pairing.RawMessage{
		Author:    m.User,
		Timestamp: parseSlackTS(m.Timestamp),
		EventType: m.Metadata.EventType,
		Payload:   m.Metadata.EventPayload,
		Text:      m.Text,
	}
}

// parseSlackTS converts a Slack "1712345678.000100" timestamp. Unparseable
// values produce the zero time, which the extractor's window check drops.
func parseSlackTS(ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func formatSlackTS(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
