package game

import "arena/internal/geom"

// EventType enumerates discrete simulation occurrences.
type EventType string

const (
	EventPlayerShotGun     EventType = "playerShotGun"
	EventPlayerShotStunGun EventType = "playerShotStunGun"
	EventPlayerSpawned     EventType = "playerSpawned"
	EventPlayerDied        EventType = "playerDied"
)

// DeathKind enumerates why a player died.
type DeathKind string

const (
	DeathShotByPlayer     DeathKind = "shotByPlayer"
	DeathTouchedTheDanger DeathKind = "touchedTheDanger"
)

// DeathReason records the cause of death. Shooter is set for DeathShotByPlayer.
type DeathReason struct {
	Kind    DeathKind `json:"kind" msgpack:"kind" jsonschema:"enum=shotByPlayer,enum=touchedTheDanger"`
	Shooter PlayerID  `json:"shooter,omitempty" msgpack:"shooter,omitempty"`
}

// ShotByPlayer builds a DeathShotByPlayer reason.
func ShotByPlayer(shooter PlayerID) DeathReason {
	return DeathReason{Kind: DeathShotByPlayer, Shooter: shooter}
}

// TouchedTheDanger builds a DeathTouchedTheDanger reason.
func TouchedTheDanger() DeathReason {
	return DeathReason{Kind: DeathTouchedTheDanger}
}

// Event is emitted once by the tick that produced it and is never re-derived
// from state.
type Event struct {
	Type     EventType    `json:"type" msgpack:"type" jsonschema:"enum=playerShotGun,enum=playerShotStunGun,enum=playerSpawned,enum=playerDied"`
	PlayerID PlayerID     `json:"playerId" msgpack:"playerId"`
	Dir      *geom.Vector `json:"dir,omitempty" msgpack:"dir,omitempty"`
	Pos      *geom.Point  `json:"pos,omitempty" msgpack:"pos,omitempty"`
	Reason   *DeathReason `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

// PlayerShotGun builds a gun event.
func PlayerShotGun(playerID PlayerID, dir geom.Vector) Event {
	return Event{Type: EventPlayerShotGun, PlayerID: playerID, Dir: &dir}
}

// PlayerShotStunGun builds a stun gun event. No rule emits it yet.
func PlayerShotStunGun(playerID PlayerID, dir geom.Vector) Event {
	return Event{Type: EventPlayerShotStunGun, PlayerID: playerID, Dir: &dir}
}

// PlayerSpawned builds a spawn event.
func PlayerSpawned(playerID PlayerID, pos geom.Point) Event {
	return Event{Type: EventPlayerSpawned, PlayerID: playerID, Pos: &pos}
}

// PlayerDied builds a death event.
func PlayerDied(playerID PlayerID, reason DeathReason) Event {
	return Event{Type: EventPlayerDied, PlayerID: playerID, Reason: &reason}
}
