package client

import (
	"fmt"
	"time"

	"arena/internal/game"
)

// FeedConfig bounds the on-screen event feed.
type FeedConfig struct {
	NumLines int
	MaxAge   time.Duration
}

func DefaultFeedConfig() FeedConfig {
	return FeedConfig{NumLines: 4, MaxAge: 10 * time.Second}
}

type feedLine struct {
	at   time.Time
	text string
}

// Feed is a short rolling list of human readable event lines.
type Feed struct {
	cfg   FeedConfig
	lines []feedLine
}

func NewFeed(cfg FeedConfig) *Feed {
	if cfg.NumLines <= 0 {
		cfg.NumLines = DefaultFeedConfig().NumLines
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultFeedConfig().MaxAge
	}
	return &Feed{cfg: cfg}
}

// Push records event at now if it has a text form.
func (f *Feed) Push(now time.Time, event game.Event) {
	text, ok := EventText(event)
	if !ok {
		return
	}
	f.lines = append(f.lines, feedLine{at: now, text: text})
	if extra := len(f.lines) - f.cfg.NumLines; extra > 0 {
		f.lines = append(f.lines[:0], f.lines[extra:]...)
	}
}

// Lines drops entries older than MaxAge and returns the rest, oldest first.
func (f *Feed) Lines(now time.Time) []string {
	keep := 0
	for keep < len(f.lines) && now.Sub(f.lines[keep].at) > f.cfg.MaxAge {
		keep++
	}
	f.lines = append(f.lines[:0], f.lines[keep:]...)

	out := make([]string, len(f.lines))
	for i, line := range f.lines {
		out[i] = line.text
	}
	return out
}

// EventText renders deaths; other events have no feed line.
func EventText(event game.Event) (string, bool) {
	if event.Type != game.EventPlayerDied || event.Reason == nil {
		return "", false
	}
	switch event.Reason.Kind {
	case game.DeathShotByPlayer:
		return fmt.Sprintf("%d got shot by %d", event.PlayerID, event.Reason.Shooter), true
	case game.DeathTouchedTheDanger:
		return fmt.Sprintf("%d touched the danger", event.PlayerID), true
	default:
		return "", false
	}
}
