package game

import (
	"context"

	"arena/logging"
)

const (
	// EventPlayerJoined is emitted when a player takes a seat in the room.
	EventPlayerJoined logging.EventType = "game.player_joined"
	// EventPlayerLeft is emitted when a player's seat is released.
	EventPlayerLeft logging.EventType = "game.player_left"
	// EventPlayerSpawned is emitted when a player body enters the world.
	EventPlayerSpawned logging.EventType = "game.player_spawned"
	// EventPlayerDied is emitted when a player body is removed by a kill.
	EventPlayerDied logging.EventType = "game.player_died"
	// EventShotFired is emitted for every bullet spawned by a player.
	EventShotFired logging.EventType = "game.shot_fired"
)

type PlayerJoinedPayload struct {
	Name string `json:"name"`
}

type PlayerLeftPayload struct {
	Reason string `json:"reason"`
}

type PlayerSpawnedPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerDiedPayload names the cause; Shooter is set for bullet kills.
type PlayerDiedPayload struct {
	Cause   string  `json:"cause"`
	Shooter *uint32 `json:"shooter,omitempty"`
}

type ShotFiredPayload struct {
	DirX float64 `json:"dirX"`
	DirY float64 `json:"dirY"`
}

func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload, extra map[string]any) {
	emit(ctx, pub, EventPlayerJoined, logging.SeverityInfo, logging.CategoryGameplay, tick, actor, nil, payload, extra)
}

func PlayerLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerLeftPayload, extra map[string]any) {
	emit(ctx, pub, EventPlayerLeft, logging.SeverityInfo, logging.CategoryGameplay, tick, actor, nil, payload, extra)
}

func PlayerSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerSpawnedPayload, extra map[string]any) {
	emit(ctx, pub, EventPlayerSpawned, logging.SeverityDebug, logging.CategoryGameplay, tick, actor, nil, payload, extra)
}

// PlayerDied publishes a kill. The shooter, when known, is listed as target.
func PlayerDied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDiedPayload, extra map[string]any) {
	var targets []logging.EntityRef
	if payload.Shooter != nil {
		targets = []logging.EntityRef{logging.PlayerRef(*payload.Shooter)}
	}
	emit(ctx, pub, EventPlayerDied, logging.SeverityInfo, logging.CategoryCombat, tick, actor, targets, payload, extra)
}

func ShotFired(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ShotFiredPayload, extra map[string]any) {
	emit(ctx, pub, EventShotFired, logging.SeverityDebug, logging.CategoryCombat, tick, actor, nil, payload, extra)
}

func emit(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, category string, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: severity,
		Category: category,
		Payload:  payload,
		Extra:    extra,
	})
}
