// Package runner orchestrates one full pairing round: resolve channels, read
// the roster and the pair history, generate pairs, notify members and record
// the round back to the memory channel.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/skauge/randomcoffee/internal/config"
	"github.com/skauge/randomcoffee/internal/pairing"
)

// ErrRunInProgress is returned when a round is already being executed.
var ErrRunInProgress = errors.New("a pairing run is already in progress")

// Directory is the read side of the Slack collaborator: channel and user
// lookups, returning complete already-paginated results.
type Directory interface {
	BotIdentity(ctx context.Context) (string, error)
	ResolveChannelIDs(ctx context.Context, names []string) (map[string]string, error)
	ChannelMembers(ctx context.Context, channelID string) ([]string, error)
	ChannelHistory(ctx context.Context, channelID string, oldest time.Time) ([]pairing.RawMessage, error)
}

// Messenger is the write side: posting to channels and group DMs.
type Messenger interface {
	PostPayload(ctx context.Context, channelID string, p pairing.Payload) error
	PostText(ctx context.Context, channelID, text string) error
	SendGroupDM(ctx context.Context, members []string, body string) error
}

// Round is the recorded outcome of the most recent run.
type Round struct {
	RanAt   time.Time   `json:"ran_at"`
	Channel string      `json:"channel"`
	Pairs   [][2]string `json:"pairs"`
	Doubled string      `json:"doubled_member,omitempty"`
}

type Runner struct {
	cfg *config.Config
	dir Directory
	msg Messenger

	// Injected for tests; New wires the real clock and a time-seeded rng.
	now    func() time.Time
	newRNG func() *rand.Rand

	mu      sync.Mutex
	running bool
	last    *Round
}

func New(cfg *config.Config, dir Directory, msg Messenger) *Runner {
	return &Runner{
		cfg: cfg,
		dir: dir,
		msg: msg,
		now: time.Now,
		newRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// Running reports whether a round is currently executing.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastRound returns the outcome of the most recent completed round, or nil.
func (r *Runner) LastRound() *Round {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Runner) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunInProgress
	}
	r.running = true
	return nil
}

func (r *Runner) finish(round *Round) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	if round != nil {
		r.last = round
	}
}

// Run executes one complete pairing round. A pairing failure aborts before
// any message is sent; delivery failures after pairing are logged and the
// round continues so the record still gets posted.
func (r *Runner) Run(ctx context.Context) (err error) {
	if err := r.begin(); err != nil {
		return err
	}
	var round *Round
	defer func() { r.finish(round) }()

	now := r.now()
	channel := r.cfg.ChannelName
	memoryChannel := channel
	names := []string{channel}
	if !r.cfg.PairsArePublic {
		memoryChannel = r.cfg.PrivateChannelName
		names = append(names, memoryChannel)
	}

	channelIDs, err := r.dir.ResolveChannelIDs(ctx, names)
	if err != nil {
		return fmt.Errorf("resolving channel IDs: %w", err)
	}
	channelID := channelIDs[channel]
	memoryChannelID := channelIDs[memoryChannel]
	log.Printf("Resolved channel IDs: %v", channelIDs)

	botID, err := r.dir.BotIdentity(ctx)
	if err != nil {
		return fmt.Errorf("resolving bot identity: %w", err)
	}

	members, err := r.dir.ChannelMembers(ctx, channelID)
	if err != nil {
		return fmt.Errorf("listing channel members: %w", err)
	}
	roster := make([]string, 0, len(members))
	for _, m := range members {
		if m != botID {
			roster = append(roster, m)
		}
	}
	log.Printf("Found %d members in channel %s", len(roster), channel)
	if len(roster) == 0 {
		log.Printf("No members found in channel, nothing to do")
		return nil
	}

	oldest := now.AddDate(0, 0, -r.cfg.LookbackDays)
	msgs, err := r.dir.ChannelHistory(ctx, memoryChannelID, oldest)
	if err != nil {
		return fmt.Errorf("fetching channel history: %w", err)
	}
	history := pairing.Extract(msgs, botID, r.cfg.LookbackDays, now,
		pairing.MagicalTextDecoder{Marker: r.cfg.MagicalText})
	log.Printf("Found %d recent pairs in history", len(history))

	result, err := pairing.GeneratePairs(roster, history, r.newRNG())
	if err != nil {
		return fmt.Errorf("generating pairs: %w", err)
	}
	log.Printf("Generated %d pairs", len(result.Pairs))

	// Group DMs first. Failures here must not block recording the round.
	var sent, failed int
	for _, p := range result.Pairs {
		if err := r.msg.SendGroupDM(ctx, []string{p.A, p.B}, pairing.DMBody(p, channelID)); err != nil {
			log.Printf("Failed to send DM to %s and %s: %v", p.A, p.B, err)
			failed++
			continue
		}
		sent++
	}
	log.Printf("Sent %d group DMs, %d failed", sent, failed)

	// One record per pair, re-extractable next run.
	for _, payload := range pairing.FormatRound(result) {
		if err := r.msg.PostPayload(ctx, memoryChannelID, payload); err != nil {
			return fmt.Errorf("posting pair record: %w", err)
		}
	}

	summary := pairing.SummaryMessage(result, r.cfg.MagicalText, r.cfg.LookbackDays)
	if err := r.msg.PostText(ctx, memoryChannelID, summary); err != nil {
		return fmt.Errorf("posting round summary: %w", err)
	}

	if !r.cfg.PairsArePublic {
		notice := fmt.Sprintf("I just launched a new round of %d pairs! Check your DMs.", len(result.Pairs))
		if err := r.msg.PostText(ctx, channelID, notice); err != nil {
			return fmt.Errorf("posting channel notice: %w", err)
		}
	}

	round = &Round{
		RanAt:   now,
		Channel: channel,
		Doubled: result.Doubled,
	}
	for _, p := range result.Pairs {
		round.Pairs = append(round.Pairs, [2]string{p.A, p.B})
	}
	log.Printf("Random coffee round completed")
	return nil
}
