package game

import (
	"fmt"
	"maps"
	"slices"

	"arena/internal/geom"
)

// PlayerStateKind enumerates the player lifecycle.
type PlayerStateKind string

const (
	PlayerAlive      PlayerStateKind = "alive"
	PlayerDead       PlayerStateKind = "dead"
	PlayerRespawning PlayerStateKind = "respawning"
)

// PlayerState is the lifecycle state; RespawnTime is only meaningful while
// respawning.
type PlayerState struct {
	Kind        PlayerStateKind `json:"kind" msgpack:"kind" jsonschema:"enum=alive,enum=dead,enum=respawning"`
	RespawnTime GameTime        `json:"respawnTime,omitempty" msgpack:"respawnTime,omitempty"`
}

// Player is the roster entry for a participant.
type Player struct {
	Name  string      `json:"name" msgpack:"name"`
	State PlayerState `json:"state" msgpack:"state"`
}

// PlayerMap indexes players by id.
type PlayerMap = map[PlayerID]Player

// EntityMap indexes entities by id.
type EntityMap = map[EntityID]Entity

// Game is one world snapshot. A snapshot is owned and mutated by a single
// caller at a time.
type Game struct {
	Settings     Settings  `json:"settings" msgpack:"settings"`
	TickNum      TickNum   `json:"tickNum" msgpack:"tickNum"`
	NextEntityID EntityID  `json:"nextEntityId" msgpack:"nextEntityId"`
	Players      PlayerMap `json:"players" msgpack:"players"`
	Entities     EntityMap `json:"entities" msgpack:"entities"`
}

// New builds a fresh world seeded with the static hazards.
func New(settings Settings) *Game {
	g := &Game{
		Settings: settings,
		Players:  make(PlayerMap),
		Entities: make(EntityMap),
	}
	for _, entity := range InitialEntities(settings) {
		g.insertEntity(entity)
	}
	return g
}

// InitialEntities lists the hazards present at tick zero.
func InitialEntities(Settings) []Entity {
	return []Entity{
		NewDangerGuyEntity(DangerGuy{
			StartPos: geom.Point{200, 200},
			EndPos:   geom.Point{900, 200},
			Size:     geom.Vector{100, 50},
			Speed:    2000,
			WaitTime: 2,
		}),
		NewDangerGuyEntity(DangerGuy{
			StartPos: geom.Point{700, 600},
			EndPos:   geom.Point{700, 100},
			Size:     geom.Vector{50, 100},
			Speed:    400,
		}),
		NewDangerGuyEntity(DangerGuy{
			StartPos: geom.Point{50, 700},
			EndPos:   geom.Point{1230, 700},
			Size:     geom.Vector{100, 50},
			Speed:    200,
		}),
	}
}

// TickGameTime maps a tick number to game time.
func (g *Game) TickGameTime(n TickNum) GameTime {
	return g.Settings.TickPeriod() * GameTime(n)
}

// CurrentGameTime is the game time of the current tick.
func (g *Game) CurrentGameTime() GameTime {
	return g.TickGameTime(g.TickNum)
}

// Entity looks up an entity by id.
func (g *Game) Entity(id EntityID) (Entity, error) {
	entity, ok := g.Entities[id]
	if !ok {
		return Entity{}, InvalidEntityIDError{ID: id}
	}
	return entity, nil
}

// PlayerEntity returns the body owned by playerID, if the player is alive in
// the world. The lookup follows entity id order.
func (g *Game) PlayerEntity(playerID PlayerID) (EntityID, *PlayerEntity, bool) {
	for _, id := range g.SortedEntityIDs() {
		entity := g.Entities[id]
		if entity.Kind != EntityPlayer || entity.Player == nil {
			continue
		}
		if entity.Player.Owner == playerID {
			return id, entity.Player, true
		}
	}
	return 0, nil, false
}

// SortedEntityIDs returns entity ids in ascending order.
func (g *Game) SortedEntityIDs() []EntityID {
	return slices.Sorted(maps.Keys(g.Entities))
}

// SortedPlayerIDs returns player ids in ascending order.
func (g *Game) SortedPlayerIDs() []PlayerID {
	return slices.Sorted(maps.Keys(g.Players))
}

// AddPlayer registers a player who will spawn on the next tick.
func (g *Game) AddPlayer(id PlayerID, name string) error {
	if _, exists := g.Players[id]; exists {
		return fmt.Errorf("player %d already present", id)
	}
	if len(g.Players) >= g.Settings.MaxNumPlayers {
		return fmt.Errorf("game is full (%d players)", g.Settings.MaxNumPlayers)
	}
	g.Players[id] = Player{
		Name:  name,
		State: PlayerState{Kind: PlayerRespawning, RespawnTime: g.CurrentGameTime()},
	}
	return nil
}

// RemovePlayer drops a player and its body. Bullets it fired stay in flight.
func (g *Game) RemovePlayer(id PlayerID) bool {
	if _, ok := g.Players[id]; !ok {
		return false
	}
	delete(g.Players, id)
	if entityID, _, ok := g.PlayerEntity(id); ok {
		delete(g.Entities, entityID)
	}
	return true
}

// Clone returns a deep copy of the snapshot.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	cloned := &Game{
		Settings:     g.Settings.clone(),
		TickNum:      g.TickNum,
		NextEntityID: g.NextEntityID,
		Players:      make(PlayerMap, len(g.Players)),
		Entities:     make(EntityMap, len(g.Entities)),
	}
	for id, player := range g.Players {
		cloned.Players[id] = player
	}
	for id, entity := range g.Entities {
		cloned.Entities[id] = entity.Clone()
	}
	return cloned
}

func (g *Game) insertEntity(entity Entity) EntityID {
	id := g.NextEntityID
	g.Entities[id] = entity
	g.NextEntityID = id.Next()
	return id
}
