package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arena/internal/game"
	"arena/internal/geom"
)

func TestEventText(t *testing.T) {
	text, ok := EventText(game.PlayerDied(3, game.ShotByPlayer(1)))
	assert.True(t, ok)
	assert.Equal(t, "3 got shot by 1", text)

	text, ok = EventText(game.PlayerDied(2, game.TouchedTheDanger()))
	assert.True(t, ok)
	assert.Equal(t, "2 touched the danger", text)

	_, ok = EventText(game.PlayerSpawned(2, geom.Point{1, 2}))
	assert.False(t, ok)
	_, ok = EventText(game.Event{Type: game.EventPlayerDied, PlayerID: 4})
	assert.False(t, ok)
}

func TestFeedKeepsNewestLines(t *testing.T) {
	feed := NewFeed(FeedConfig{NumLines: 2, MaxAge: time.Minute})
	now := time.Unix(100, 0)
	for i := game.PlayerID(1); i <= 3; i++ {
		feed.Push(now, game.PlayerDied(i, game.TouchedTheDanger()))
	}
	feed.Push(now, game.PlayerShotGun(1, geom.Vector{1, 0}))

	assert.Equal(t, []string{"2 touched the danger", "3 touched the danger"}, feed.Lines(now))
}

func TestFeedExpiresOldLines(t *testing.T) {
	feed := NewFeed(DefaultFeedConfig())
	start := time.Unix(100, 0)
	feed.Push(start, game.PlayerDied(1, game.ShotByPlayer(2)))
	feed.Push(start.Add(5*time.Second), game.PlayerDied(2, game.ShotByPlayer(1)))

	assert.Len(t, feed.Lines(start.Add(10*time.Second)), 2)
	assert.Equal(t, []string{"2 got shot by 1"}, feed.Lines(start.Add(11*time.Second)))
	assert.Empty(t, feed.Lines(start.Add(time.Hour)))
}
